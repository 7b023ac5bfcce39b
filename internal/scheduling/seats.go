package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

// SeatLedger moves an occurrence's booked_count. Both directions run under
// the occurrence row lock.
type SeatLedger struct {
	classes store.ClassRepository
}

func NewSeatLedger(classes store.ClassRepository) *SeatLedger {
	return &SeatLedger{classes: classes}
}

func (l *SeatLedger) Reserve(ctx context.Context, businessID, occurrenceID uuid.UUID) (domain.ClassOccurrence, error) {
	if businessID == uuid.Nil || occurrenceID == uuid.Nil {
		return domain.ClassOccurrence{}, NewValidationError("business_id and occurrence_id are required")
	}
	occ, err := l.classes.AdjustBookedCount(ctx, businessID, occurrenceID, 1)
	if errors.Is(err, store.ErrCapacityExceeded) {
		return domain.ClassOccurrence{}, ErrSeatsExhausted
	}
	return occ, err
}

// Release frees one seat; releasing an empty occurrence is a no-op.
func (l *SeatLedger) Release(ctx context.Context, businessID, occurrenceID uuid.UUID) (domain.ClassOccurrence, error) {
	if businessID == uuid.Nil || occurrenceID == uuid.Nil {
		return domain.ClassOccurrence{}, NewValidationError("business_id and occurrence_id are required")
	}
	return l.classes.AdjustBookedCount(ctx, businessID, occurrenceID, -1)
}
