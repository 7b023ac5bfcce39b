package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/service/appointments"
)

type AppointmentsServer struct {
	svc appointmentsService
	log *slog.Logger
}

type appointmentsService interface {
	Book(ctx context.Context, in appointments.BookInput) (domain.Appointment, error)
	Cancel(ctx context.Context, businessID, appointmentID uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}

var _ AppointmentsService = (*AppointmentsServer)(nil)

func NewAppointmentsServer(svc appointmentsService, log *slog.Logger) *AppointmentsServer {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.appointments")),
	}
}

func (s *AppointmentsServer) BookAppointment(ctx context.Context, req *BookAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "BookAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.StartTime.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"), slog.String("business_id", req.BusinessID))
		return nil, status.Error(codes.InvalidArgument, "start_time is required")
	}
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return nil, err
	}
	serviceID, err := parseID("service_id", req.ServiceID)
	if err != nil {
		return nil, err
	}
	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}
	preferred, err := parseOptionalID("preferred_staff_id", req.PreferredStaffID)
	if err != nil {
		return nil, err
	}

	appt, err := s.svc.Book(ctx, appointments.BookInput{
		BusinessID:       businessID,
		ServiceID:        serviceID,
		CustomerID:       customerID,
		StartTime:        req.StartTime,
		PreferredStaffID: preferred,
		IdempotencyKey:   idempotencyKey(ctx),
	})
	if err != nil {
		return nil, fail(log, "appointment booking", err,
			slog.String("business_id", req.BusinessID),
			slog.String("service_id", req.ServiceID),
			slog.Time("start_time", req.StartTime),
		)
	}

	log.Info(
		"appointment booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("business_id", appt.BusinessID.String()),
		slog.String("staff_id", optionalID(appt.StaffID)),
		slog.Time("start_time", appt.StartTime),
		slog.Time("end_time", appt.EndTime),
	)

	return &AppointmentResponse{Appointment: toWireAppointment(appt)}, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (s *AppointmentsServer) CancelAppointment(ctx context.Context, req *CancelAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return nil, err
	}
	id, err := parseID("appointment_id", req.AppointmentID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("business_id", req.BusinessID))
		return nil, err
	}

	appt, err := s.svc.Cancel(ctx, businessID, id)
	if err != nil {
		return nil, fail(log, "appointment cancel", err,
			slog.String("appointment_id", id.String()),
			slog.String("business_id", req.BusinessID),
		)
	}

	log.Info("appointment cancelled", slog.String("appointment_id", id.String()), slog.String("business_id", req.BusinessID))
	return &AppointmentResponse{Appointment: toWireAppointment(appt)}, nil
}

func (s *AppointmentsServer) ListAppointments(ctx context.Context, req *ListAppointmentsRequest) (*ListAppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAppointments"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.WindowStart.IsZero() || req.WindowEnd.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_window"), slog.String("business_id", req.BusinessID))
		return nil, status.Error(codes.InvalidArgument, "window_start and window_end are required")
	}
	businessID, err := parseID("business_id", req.BusinessID)
	if err != nil {
		return nil, err
	}

	appts, err := s.svc.List(ctx, businessID, req.WindowStart, req.WindowEnd)
	if err != nil {
		return nil, fail(log, "appointments list", err, slog.String("business_id", req.BusinessID))
	}

	out := make([]Appointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, toWireAppointment(a))
	}

	log.Debug(
		"appointments listed",
		slog.String("business_id", req.BusinessID),
		slog.Int("count", len(out)),
		slog.Time("window_start", req.WindowStart),
		slog.Time("window_end", req.WindowEnd),
	)

	return &ListAppointmentsResponse{Appointments: out}, nil
}
