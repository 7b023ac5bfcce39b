package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/scheduling"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type ValidationError = scheduling.ValidationError

func validationError(msg string) error {
	return scheduling.NewValidationError(msg)
}

const (
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentCancelled = "appointment.cancelled"
)

// AppointmentEvent is the outbox payload for both appointment events.
type AppointmentEvent struct {
	AppointmentID string    `json:"appointment_id"`
	BusinessID    string    `json:"business_id"`
	ServiceID     string    `json:"service_id"`
	StaffID       *string   `json:"staff_id,omitempty"`
	CustomerID    string    `json:"customer_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Service struct {
	engine *scheduling.Engine
	repo   store.AppointmentRepository
	now    func() time.Time
}

func NewService(engine *scheduling.Engine, repo store.AppointmentRepository) *Service {
	return &Service{engine: engine, repo: repo, now: time.Now}
}

type BookInput struct {
	BusinessID       uuid.UUID
	ServiceID        uuid.UUID
	CustomerID       uuid.UUID
	StartTime        time.Time
	PreferredStaffID *uuid.UUID
	IdempotencyKey   string
}

// Book runs the engine as a fast path, then persists the appointment in a
// transaction that holds the staff and service locks and checks again.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	if in.BusinessID == uuid.Nil {
		return domain.Appointment{}, validationError("business_id is required")
	}
	if in.ServiceID == uuid.Nil {
		return domain.Appointment{}, validationError("service_id is required")
	}
	if in.CustomerID == uuid.Nil {
		return domain.Appointment{}, validationError("customer_id is required")
	}
	if in.StartTime.IsZero() {
		return domain.Appointment{}, validationError("start_time is required")
	}
	start := in.StartTime.UTC()

	var id uuid.UUID
	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Appointment{}, validationError("idempotency_key too long")
		}
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte("bookly:book_appointment:"+in.BusinessID.String()+":"+in.CustomerID.String()+":"+key))

		// A replay must not be judged against the booking it created.
		existing, err := s.repo.GetAppointment(ctx, in.BusinessID, id)
		if err == nil {
			return replayed(existing, in, start)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, err
		}
	}

	service, err := s.engine.Service(ctx, in.BusinessID, in.ServiceID)
	if err != nil {
		return domain.Appointment{}, err
	}
	decision, err := s.engine.ResolveBooking(ctx, service, in.BusinessID, start, in.PreferredStaffID)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt := domain.Appointment{
		ID:         id,
		BusinessID: in.BusinessID,
		ServiceID:  service.ID,
		StaffID:    decision.StaffID,
		CustomerID: in.CustomerID,
		StartTime:  decision.Start,
		EndTime:    decision.End,
		Status:     domain.AppointmentStatusConfirmed,
	}

	var out domain.Appointment
	err = s.repo.InBookingTransaction(ctx, in.BusinessID, lockKeys(service.ID, decision.StaffID), func(ctx context.Context, tx store.BookingTx) error {
		if id != uuid.Nil {
			existing, err := tx.GetAppointmentForUpdate(ctx, in.BusinessID, id)
			if err == nil {
				out, err = replayed(existing, in, start)
				return err
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		if err := s.engine.Verify(ctx, tx, service, in.BusinessID, decision); err != nil {
			return err
		}
		created, err := tx.CreateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		if err := enqueue(ctx, tx, EventAppointmentBooked, created, s.now().UTC()); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Appointment{}, translateStoreError(err)
	}
	return out, nil
}

// Cancel moves an active appointment to CANCELLED. Cancelling twice returns
// the cancelled appointment again.
func (s *Service) Cancel(ctx context.Context, businessID, appointmentID uuid.UUID) (domain.Appointment, error) {
	if businessID == uuid.Nil {
		return domain.Appointment{}, validationError("business_id is required")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	current, err := s.repo.GetAppointment(ctx, businessID, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = s.repo.InBookingTransaction(ctx, businessID, lockKeys(current.ServiceID, current.StaffID), func(ctx context.Context, tx store.BookingTx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, businessID, appointmentID)
		if err != nil {
			return err
		}
		switch {
		case appt.Status == domain.AppointmentStatusCancelled:
			out = appt
			return nil
		case !appt.Status.Active():
			return validationError("appointment is " + strings.ToLower(string(appt.Status)) + " and cannot be cancelled")
		}

		now := s.now().UTC()
		if err := tx.CancelAppointment(ctx, businessID, appointmentID, now); err != nil {
			return err
		}
		appt.Status = domain.AppointmentStatusCancelled
		appt.CancelledAt = &now
		appt.UpdatedAt = now
		if err := enqueue(ctx, tx, EventAppointmentCancelled, appt, now); err != nil {
			return err
		}
		out = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	if businessID == uuid.Nil {
		return nil, validationError("business_id is required")
	}

	start := windowStart.UTC()
	end := windowEnd.UTC()
	if end.Equal(start) || end.Before(start) {
		return nil, validationError("window_end must be after window_start")
	}
	if end.Sub(start) > 93*24*time.Hour {
		return nil, validationError("window too long")
	}

	return s.repo.ListAppointments(ctx, businessID, start, end)
}

func replayed(existing domain.Appointment, in BookInput, start time.Time) (domain.Appointment, error) {
	if existing.ServiceID != in.ServiceID || existing.CustomerID != in.CustomerID || !existing.StartTime.Equal(start) {
		return domain.Appointment{}, store.ErrIdempotencyConflict
	}
	return existing, nil
}

func lockKeys(serviceID uuid.UUID, staffID *uuid.UUID) []string {
	keys := []string{"service:" + serviceID.String()}
	if staffID != nil {
		keys = append(keys, "staff:"+staffID.String())
	}
	return keys
}

func translateStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return scheduling.ErrAppointmentConflict
	case errors.Is(err, store.ErrCapacityExceeded):
		return scheduling.ErrSeatsExhausted
	default:
		return err
	}
}

func enqueue(ctx context.Context, tx store.BookingTx, eventType string, a domain.Appointment, at time.Time) error {
	ev := AppointmentEvent{
		AppointmentID: a.ID.String(),
		BusinessID:    a.BusinessID.String(),
		ServiceID:     a.ServiceID.String(),
		CustomerID:    a.CustomerID.String(),
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Status:        string(a.Status),
		OccurredAt:    at,
	}
	if a.StaffID != nil {
		staff := a.StaffID.String()
		ev.StaffID = &staff
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return tx.Enqueue(ctx, store.OutboxEvent{
		AggregateType: "appointment",
		AggregateID:   a.ID.String(),
		EventType:     eventType,
		Payload:       payload,
	})
}
