package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type CapacityCheck struct {
	BusinessID           uuid.UUID
	ServiceID            uuid.UUID
	Start                time.Time
	End                  time.Time
	MaxClientsPerSlot    int
	ExcludeAppointmentID *uuid.UUID
}

type CapacityGuard struct {
	appts store.OverlapReader
}

func NewCapacityGuard(appts store.OverlapReader) *CapacityGuard {
	return &CapacityGuard{appts: appts}
}

// EnsureCapacity counts active bookings of the service overlapping the exact
// [Start, End) and fails once MaxClientsPerSlot is reached. It only reads;
// the booking transaction repeats it under lock.
func (g *CapacityGuard) EnsureCapacity(ctx context.Context, c CapacityCheck) error {
	if c.MaxClientsPerSlot <= 0 {
		return ErrInvalidCapacityConfiguration
	}
	serviceID := c.ServiceID
	n, err := g.appts.CountOverlapping(ctx, store.AppointmentFilter{
		BusinessID:           c.BusinessID,
		ServiceID:            &serviceID,
		ExcludeAppointmentID: c.ExcludeAppointmentID,
		Start:                c.Start,
		End:                  c.End,
	})
	if err != nil {
		return err
	}
	if n >= c.MaxClientsPerSlot {
		return ErrSeatsExhausted
	}
	return nil
}
