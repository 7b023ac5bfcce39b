package grpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/scheduling"
)

type bookingEngine interface {
	Service(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Service, error)
	ResolveBooking(ctx context.Context, service domain.Service, businessID uuid.UUID, start time.Time, preferredStaffID *uuid.UUID) (scheduling.Decision, error)
	CheckCapacity(ctx context.Context, c scheduling.CapacityCheck) error
	AvailabilityWindows(ctx context.Context, businessID, staffID uuid.UUID, onDate time.Time) ([]scheduling.Window, error)
}

type waitlist interface {
	Join(ctx context.Context, businessID, occurrenceID, customerID uuid.UUID) (domain.WaitlistEntry, error)
	PromoteNext(ctx context.Context, businessID, occurrenceID uuid.UUID) (domain.WaitlistEntry, error)
	Remove(ctx context.Context, businessID, entryID uuid.UUID) (domain.WaitlistEntry, error)
}

type occurrenceGenerator interface {
	Generate(ctx context.Context, in scheduling.GenerateInput) (domain.ClassOccurrence, error)
	GenerateSeries(ctx context.Context, in scheduling.SeriesInput) ([]domain.ClassOccurrence, error)
}

type seatLedger interface {
	Reserve(ctx context.Context, businessID, occurrenceID uuid.UUID) (domain.ClassOccurrence, error)
	Release(ctx context.Context, businessID, occurrenceID uuid.UUID) (domain.ClassOccurrence, error)
}

// SchedulingDeps groups what SchedulingServer delegates to.
type SchedulingDeps struct {
	Engine      bookingEngine
	Waitlist    waitlist
	Occurrences occurrenceGenerator
	Seats       seatLedger
}

type SchedulingServer struct {
	deps SchedulingDeps
	log  *slog.Logger
}

var _ SchedulingService = (*SchedulingServer)(nil)

func NewSchedulingServer(deps SchedulingDeps, log *slog.Logger) *SchedulingServer {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingServer{
		deps: deps,
		log:  log.With(slog.String("component", "grpc.scheduling")),
	}
}

func nilRequest(log *slog.Logger) error {
	log.Warn("invalid request", slog.String("reason", "nil_request"))
	return status.Error(codes.InvalidArgument, "request is required")
}

func (s *SchedulingServer) ResolveBooking(ctx context.Context, req *ResolveBookingRequest) (*ResolveBookingResponse, error) {
	log := s.log.With(slog.String("rpc", "ResolveBooking"))
	if req == nil {
		return nil, nilRequest(log)
	}
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return nil, err
	}
	serviceID, err := parseID("service_id", req.ServiceID)
	if err != nil {
		return nil, err
	}
	preferred, err := parseOptionalID("preferred_staff_id", req.PreferredStaffID)
	if err != nil {
		return nil, err
	}

	attrs := []any{
		slog.String("business_id", req.BusinessID),
		slog.String("service_id", req.ServiceID),
		slog.Time("start_time", req.StartTime),
	}
	service, err := s.deps.Engine.Service(ctx, businessID, serviceID)
	if err != nil {
		return nil, fail(log, "booking decision", err, attrs...)
	}
	d, err := s.deps.Engine.ResolveBooking(ctx, service, businessID, req.StartTime, preferred)
	if err != nil {
		return nil, fail(log, "booking decision", err, attrs...)
	}

	log.Info("booking accepted", append(attrs, slog.String("staff_id", optionalID(d.StaffID)))...)
	return &ResolveBookingResponse{
		StaffID:       optionalID(d.StaffID),
		StartTime:     d.Start,
		EndTime:       d.End,
		BufferedStart: d.BufferedStart,
		BufferedEnd:   d.BufferedEnd,
	}, nil
}

func (s *SchedulingServer) CheckCapacity(ctx context.Context, req *CheckCapacityRequest) (*CheckCapacityResponse, error) {
	log := s.log.With(slog.String("rpc", "CheckCapacity"))
	if req == nil {
		return nil, nilRequest(log)
	}
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return nil, err
	}
	serviceID, err := parseID("service_id", req.ServiceID)
	if err != nil {
		return nil, err
	}
	exclude, err := parseOptionalID("exclude_appointment_id", req.ExcludeAppointmentID)
	if err != nil {
		return nil, err
	}

	attrs := []any{slog.String("business_id", req.BusinessID), slog.String("service_id", req.ServiceID)}
	var maxClients int
	if req.MaxClientsPerSlot != nil {
		maxClients = *req.MaxClientsPerSlot
	} else {
		service, err := s.deps.Engine.Service(ctx, businessID, serviceID)
		if err != nil {
			return nil, fail(log, "capacity check", err, attrs...)
		}
		maxClients = service.MaxClientsPerSlot
	}

	err = s.deps.Engine.CheckCapacity(ctx, scheduling.CapacityCheck{
		BusinessID:           businessID,
		ServiceID:            serviceID,
		Start:                req.StartTime,
		End:                  req.EndTime,
		MaxClientsPerSlot:    maxClients,
		ExcludeAppointmentID: exclude,
	})
	if err != nil {
		return nil, fail(log, "capacity check", err, attrs...)
	}
	return &CheckCapacityResponse{}, nil
}

func (s *SchedulingServer) AvailabilityWindows(ctx context.Context, req *AvailabilityWindowsRequest) (*AvailabilityWindowsResponse, error) {
	log := s.log.With(slog.String("rpc", "AvailabilityWindows"))
	if req == nil {
		return nil, nilRequest(log)
	}
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return nil, err
	}
	staffID, err := parseID("staff_id", req.StaffID)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_date"), slog.String("date", req.Date))
		return nil, status.Error(codes.InvalidArgument, "date must be YYYY-MM-DD")
	}

	windows, err := s.deps.Engine.AvailabilityWindows(ctx, businessID, staffID, date)
	if err != nil {
		return nil, fail(log, "availability lookup", err, slog.String("staff_id", req.StaffID), slog.String("date", req.Date))
	}
	return &AvailabilityWindowsResponse{Windows: toWireWindows(windows)}, nil
}

func (s *SchedulingServer) JoinWaitlist(ctx context.Context, req *JoinWaitlistRequest) (*WaitlistEntryResponse, error) {
	log := s.log.With(slog.String("rpc", "JoinWaitlist"))
	if req == nil {
		return nil, nilRequest(log)
	}
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return nil, err
	}
	occurrenceID, err := parseID("occurrence_id", req.OccurrenceID)
	if err != nil {
		return nil, err
	}
	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}

	entry, err := s.deps.Waitlist.Join(ctx, businessID, occurrenceID, customerID)
	if err != nil {
		return nil, fail(log, "waitlist join", err, slog.String("occurrence_id", req.OccurrenceID))
	}
	log.Info("waitlist joined", slog.String("entry_id", entry.ID.String()), slog.Int("position", entry.Position))
	return &WaitlistEntryResponse{Entry: toWireWaitlistEntry(entry)}, nil
}

func (s *SchedulingServer) PromoteWaitlist(ctx context.Context, req *PromoteWaitlistRequest) (*WaitlistEntryResponse, error) {
	log := s.log.With(slog.String("rpc", "PromoteWaitlist"))
	if req == nil {
		return nil, nilRequest(log)
	}
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return nil, err
	}
	occurrenceID, err := parseID("occurrence_id", req.OccurrenceID)
	if err != nil {
		return nil, err
	}

	entry, err := s.deps.Waitlist.PromoteNext(ctx, businessID, occurrenceID)
	if err != nil {
		return nil, fail(log, "waitlist promotion", err, slog.String("occurrence_id", req.OccurrenceID))
	}
	log.Info("waitlist entry promoted", slog.String("entry_id", entry.ID.String()), slog.Int("position", entry.Position))
	return &WaitlistEntryResponse{Entry: toWireWaitlistEntry(entry)}, nil
}

func (s *SchedulingServer) RemoveWaitlistEntry(ctx context.Context, req *RemoveWaitlistEntryRequest) (*WaitlistEntryResponse, error) {
	log := s.log.With(slog.String("rpc", "RemoveWaitlistEntry"))
	if req == nil {
		return nil, nilRequest(log)
	}
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return nil, err
	}
	entryID, err := parseID("entry_id", req.EntryID)
	if err != nil {
		return nil, err
	}

	entry, err := s.deps.Waitlist.Remove(ctx, businessID, entryID)
	if err != nil {
		return nil, fail(log, "waitlist removal", err, slog.String("entry_id", req.EntryID))
	}
	log.Info("waitlist entry removed", slog.String("entry_id", entry.ID.String()))
	return &WaitlistEntryResponse{Entry: toWireWaitlistEntry(entry)}, nil
}

func (s *SchedulingServer) generateInput(req *GenerateOccurrenceRequest) (scheduling.GenerateInput, error) {
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return scheduling.GenerateInput{}, err
	}
	templateID, err := parseID("template_id", req.TemplateID)
	if err != nil {
		return scheduling.GenerateInput{}, err
	}
	instructor, err := parseOptionalID("instructor_id", req.InstructorID)
	if err != nil {
		return scheduling.GenerateInput{}, err
	}
	return scheduling.GenerateInput{
		BusinessID:       businessID,
		TemplateID:       templateID,
		Start:            req.StartTime,
		InstructorID:     instructor,
		CapacityOverride: req.CapacityOverride,
	}, nil
}

func (s *SchedulingServer) GenerateOccurrence(ctx context.Context, req *GenerateOccurrenceRequest) (*OccurrenceResponse, error) {
	log := s.log.With(slog.String("rpc", "GenerateOccurrence"))
	if req == nil {
		return nil, nilRequest(log)
	}
	in, err := s.generateInput(req)
	if err != nil {
		return nil, err
	}

	occ, err := s.deps.Occurrences.Generate(ctx, in)
	if err != nil {
		return nil, fail(log, "occurrence generation", err, slog.String("template_id", req.TemplateID))
	}
	log.Info("occurrence generated", slog.String("occurrence_id", occ.ID.String()), slog.Time("start_time", occ.StartTime))
	return &OccurrenceResponse{Occurrence: toWireOccurrence(occ)}, nil
}

func (s *SchedulingServer) GenerateOccurrenceSeries(ctx context.Context, req *GenerateOccurrenceSeriesRequest) (*OccurrencesResponse, error) {
	log := s.log.With(slog.String("rpc", "GenerateOccurrenceSeries"))
	if req == nil {
		return nil, nilRequest(log)
	}
	if req.Weekly == nil {
		log.Warn("invalid request", slog.String("reason", "missing_weekly"), slog.String("template_id", req.TemplateID))
		return nil, status.Error(codes.InvalidArgument, "weekly is required")
	}
	in, err := s.generateInput(&req.GenerateOccurrenceRequest)
	if err != nil {
		return nil, err
	}

	occs, err := s.deps.Occurrences.GenerateSeries(ctx, scheduling.SeriesInput{
		GenerateInput: in,
		Rule: domain.RecurrenceRule{
			Frequency: domain.RecurrenceFrequencyWeekly,
			Interval:  req.Weekly.Interval,
			ByWeekday: req.Weekly.Weekdays,
			Until:     req.Weekly.Until,
			Count:     req.Weekly.Count,
			TimeZone:  req.Weekly.TimeZone,
		},
	})
	if err != nil {
		return nil, fail(log, "occurrence series generation", err, slog.String("template_id", req.TemplateID))
	}

	out := make([]Occurrence, 0, len(occs))
	for _, o := range occs {
		out = append(out, toWireOccurrence(o))
	}
	log.Info("occurrence series generated", slog.String("template_id", req.TemplateID), slog.Int("count", len(out)))
	return &OccurrencesResponse{Occurrences: out}, nil
}

func (s *SchedulingServer) ReserveSeat(ctx context.Context, req *OccurrenceSeatRequest) (*OccurrenceResponse, error) {
	return s.seat(ctx, "ReserveSeat", req, s.deps.Seats.Reserve)
}

func (s *SchedulingServer) ReleaseSeat(ctx context.Context, req *OccurrenceSeatRequest) (*OccurrenceResponse, error) {
	return s.seat(ctx, "ReleaseSeat", req, s.deps.Seats.Release)
}

func (s *SchedulingServer) seat(ctx context.Context, rpc string, req *OccurrenceSeatRequest, op func(context.Context, uuid.UUID, uuid.UUID) (domain.ClassOccurrence, error)) (*OccurrenceResponse, error) {
	log := s.log.With(slog.String("rpc", rpc))
	if req == nil {
		return nil, nilRequest(log)
	}
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return nil, err
	}
	occurrenceID, err := parseID("occurrence_id", req.OccurrenceID)
	if err != nil {
		return nil, err
	}

	occ, err := op(ctx, businessID, occurrenceID)
	if err != nil {
		return nil, fail(log, "seat update", err, slog.String("occurrence_id", req.OccurrenceID))
	}
	log.Debug("seat updated", slog.String("occurrence_id", req.OccurrenceID), slog.Int("booked_count", occ.BookedCount))
	return &OccurrenceResponse{Occurrence: toWireOccurrence(occ)}, nil
}
