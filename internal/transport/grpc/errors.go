package grpc

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bolttesting/Bookly-sub001/internal/scheduling"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type failure struct {
	code  codes.Code
	msg   string
	level slog.Level
}

// classify maps service errors onto gRPC statuses. Expected business
// rejections log at Info, bad input at Warn, everything else at Error.
func classify(err error) failure {
	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		return failure{codes.InvalidArgument, vErr.Error(), slog.LevelWarn}
	case errors.Is(err, scheduling.ErrStaffNotEligible):
		return failure{codes.InvalidArgument, err.Error(), slog.LevelWarn}
	case errors.Is(err, store.ErrNotFound):
		return failure{codes.NotFound, "not found", slog.LevelInfo}
	case errors.Is(err, scheduling.ErrSeatsExhausted):
		return failure{codes.ResourceExhausted, err.Error(), slog.LevelInfo}
	case errors.Is(err, scheduling.ErrNoStaffAssigned),
		errors.Is(err, scheduling.ErrNoStaffAvailable),
		errors.Is(err, scheduling.ErrClassStillFull),
		errors.Is(err, scheduling.ErrNoWaitlistEntries):
		return failure{codes.FailedPrecondition, err.Error(), slog.LevelInfo}
	case errors.Is(err, scheduling.ErrAppointmentConflict), errors.Is(err, store.ErrConflict):
		return failure{codes.FailedPrecondition, "That time was just taken. Pick a different slot.", slog.LevelInfo}
	case errors.Is(err, store.ErrIdempotencyConflict):
		return failure{codes.FailedPrecondition, "This request key was already used for a different appointment. Try again.", slog.LevelInfo}
	case errors.Is(err, scheduling.ErrInvalidCapacityConfiguration):
		return failure{codes.Internal, "service capacity is misconfigured", slog.LevelError}
	default:
		return failure{codes.Internal, "internal error", slog.LevelError}
	}
}

// fail logs err with the rpc's logger and returns the status to send.
func fail(log *slog.Logger, what string, err error, attrs ...any) error {
	f := classify(err)
	args := append([]any{slog.Any("err", err), slog.String("code", f.code.String())}, attrs...)
	switch f.level {
	case slog.LevelInfo:
		log.Info(what+" rejected", args...)
	case slog.LevelWarn:
		log.Warn("invalid request", args...)
	default:
		log.Error(what+" failed", args...)
	}
	return status.Error(f.code, f.msg)
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, field+" must be a UUID")
	}
	return id, nil
}

func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
