package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

const tracerName = "github.com/bolttesting/Bookly-sub001/internal/scheduling"

// Decision is the outcome of a successful booking check. StaffID is nil for
// bookings left unassigned.
type Decision struct {
	StaffID       *uuid.UUID
	Start         time.Time
	End           time.Time
	BufferedStart time.Time
	BufferedEnd   time.Time
}

// Engine gates bookings. It reads through the repositories it was built
// with and never writes; persisting an accepted booking is the caller's job,
// followed by Verify inside the write transaction.
type Engine struct {
	services     store.ServiceRepository
	availability *AvailabilityStore
	conflicts    *ConflictDetector
	capacity     *CapacityGuard
	resolver     *StaffResolver
	tracer       trace.Tracer
}

type Repositories struct {
	Services     store.ServiceRepository
	Staff        store.StaffRepository
	Availability store.AvailabilityRepository
	Appointments store.OverlapReader
}

func NewEngine(repos Repositories) *Engine {
	availability := NewAvailabilityStore(repos.Availability)
	conflicts := NewConflictDetector(repos.Appointments)
	return &Engine{
		services:     repos.Services,
		availability: availability,
		conflicts:    conflicts,
		capacity:     NewCapacityGuard(repos.Appointments),
		resolver:     NewStaffResolver(repos.Staff, availability, conflicts),
		tracer:       otel.Tracer(tracerName),
	}
}

// Service loads a tenant's service.
func (e *Engine) Service(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Service, error) {
	if businessID == uuid.Nil {
		return domain.Service{}, NewValidationError("business_id is required")
	}
	if serviceID == uuid.Nil {
		return domain.Service{}, NewValidationError("service_id is required")
	}
	return e.services.GetService(ctx, businessID, serviceID)
}

// ResolveBooking decides whether service can be booked at start and by whom.
// Shared (MULTI) services check seats before any staff work. Exclusive
// (SINGLE) services rely on staff exclusivity, and fall back to seat counting
// only when the booking stays unassigned, since nothing else would stop two
// unassigned bookings from sharing the slot.
func (e *Engine) ResolveBooking(ctx context.Context, service domain.Service, businessID uuid.UUID, start time.Time, preferredStaffID *uuid.UUID) (_ Decision, err error) {
	ctx, span := e.tracer.Start(ctx, "scheduling.ResolveBooking", trace.WithAttributes(
		attribute.String("business_id", businessID.String()),
		attribute.String("service_id", service.ID.String()),
		attribute.String("capacity_type", string(service.CapacityType)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if service.BusinessID != businessID {
		return Decision{}, store.ErrNotFound
	}
	if err := validateService(service); err != nil {
		return Decision{}, err
	}
	if start.IsZero() {
		return Decision{}, NewValidationError("start_time is required")
	}

	start = start.UTC()
	end := start.Add(service.Duration())
	check := CapacityCheck{
		BusinessID:        businessID,
		ServiceID:         service.ID,
		Start:             start,
		End:               end,
		MaxClientsPerSlot: service.MaxClientsPerSlot,
	}

	if service.Shared() {
		if err := e.capacity.EnsureCapacity(ctx, check); err != nil {
			return Decision{}, err
		}
	}

	staffID, err := e.resolver.Resolve(ctx, service, businessID, start, end, preferredStaffID)
	if err != nil {
		return Decision{}, err
	}

	if !service.Shared() && staffID == nil {
		if err := e.capacity.EnsureCapacity(ctx, check); err != nil {
			return Decision{}, err
		}
	}

	if staffID != nil {
		span.SetAttributes(attribute.String("staff_id", staffID.String()))
	}
	bufferedStart, bufferedEnd := service.Buffered(start, end)
	return Decision{
		StaffID:       staffID,
		Start:         start,
		End:           end,
		BufferedStart: bufferedStart,
		BufferedEnd:   bufferedEnd,
	}, nil
}

// Verify repeats the conflict and seat checks for an accepted decision
// against reader, normally the booking transaction holding the staff and
// service locks.
func (e *Engine) Verify(ctx context.Context, reader store.OverlapReader, service domain.Service, businessID uuid.UUID, d Decision) error {
	if err := validateService(service); err != nil {
		return err
	}
	serviceID := service.ID
	conflict, err := NewConflictDetector(reader).HasConflict(ctx, ConflictQuery{
		BusinessID:       businessID,
		StaffID:          d.StaffID,
		BufferedStart:    d.BufferedStart,
		BufferedEnd:      d.BufferedEnd,
		Start:            d.Start,
		End:              d.End,
		ServiceID:        &serviceID,
		AllowSharedSlots: service.Shared(),
	})
	if err != nil {
		return err
	}
	if conflict {
		return ErrAppointmentConflict
	}
	if service.Shared() || d.StaffID == nil {
		return NewCapacityGuard(reader).EnsureCapacity(ctx, CapacityCheck{
			BusinessID:        businessID,
			ServiceID:         service.ID,
			Start:             d.Start,
			End:               d.End,
			MaxClientsPerSlot: service.MaxClientsPerSlot,
		})
	}
	return nil
}

// validateService rejects services whose stored configuration breaks the
// capacity rules, so a SINGLE service never books more than one client.
func validateService(service domain.Service) error {
	err := service.Validate()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrCapacityMisconfigured):
		return fmt.Errorf("%w: %s", ErrInvalidCapacityConfiguration, err.Error())
	default:
		return NewValidationError("service " + err.Error())
	}
}

func (e *Engine) CheckCapacity(ctx context.Context, c CapacityCheck) error {
	if c.BusinessID == uuid.Nil || c.ServiceID == uuid.Nil {
		return NewValidationError("business_id and service_id are required")
	}
	if !c.End.After(c.Start) {
		return NewValidationError("end_time must be after start_time")
	}
	return e.capacity.EnsureCapacity(ctx, c)
}

func (e *Engine) AvailabilityWindows(ctx context.Context, businessID, staffID uuid.UUID, onDate time.Time) ([]Window, error) {
	if businessID == uuid.Nil || staffID == uuid.Nil {
		return nil, NewValidationError("business_id and staff_id are required")
	}
	if onDate.IsZero() {
		return nil, NewValidationError("date is required")
	}
	avail, err := e.availability.WindowsFor(ctx, businessID, staffID, onDate)
	if err != nil {
		return nil, err
	}
	return avail.Windows, nil
}

// IsDecisionError reports whether err is one of the engine's typed
// rejections rather than an infrastructure failure.
func IsDecisionError(err error) bool {
	for _, target := range []error{
		ErrStaffNotEligible,
		ErrNoStaffAssigned,
		ErrNoStaffAvailable,
		ErrSeatsExhausted,
		ErrAppointmentConflict,
		ErrClassStillFull,
		ErrNoWaitlistEntries,
		ErrInvalidCapacityConfiguration,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
