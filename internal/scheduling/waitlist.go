package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

const EventWaitlistPromoted = "waitlist.promoted"

// WaitlistPromotedEvent is the outbox payload announcing a promotion. The
// notification side consumes it; turning the promotion into a booking is a
// separate step driven by the customer.
type WaitlistPromotedEvent struct {
	EntryID      string    `json:"entry_id"`
	BusinessID   string    `json:"business_id"`
	OccurrenceID string    `json:"occurrence_id"`
	CustomerID   string    `json:"customer_id"`
	Position     int       `json:"position"`
	PromotedAt   time.Time `json:"promoted_at"`
}

const DefaultPromotionHold = 30 * time.Minute

// WaitlistCoordinator queues customers per class occurrence. A promotion
// holds its seat for the promotion hold, so a freed seat is offered to one
// customer at a time. A hold of zero or less disables the reservation and
// promotes whenever bookedCount is below capacity.
type WaitlistCoordinator struct {
	repo store.WaitlistRepository
	hold time.Duration
	now  func() time.Time
}

func NewWaitlistCoordinator(repo store.WaitlistRepository, promotionHold time.Duration) *WaitlistCoordinator {
	return &WaitlistCoordinator{repo: repo, hold: promotionHold, now: time.Now}
}

// Join appends the customer to the occurrence's queue. Positions count every
// entry ever written for the occurrence, so they only grow. A customer who is
// already pending gets their existing entry back.
func (c *WaitlistCoordinator) Join(ctx context.Context, businessID, occurrenceID, customerID uuid.UUID) (domain.WaitlistEntry, error) {
	if businessID == uuid.Nil || occurrenceID == uuid.Nil || customerID == uuid.Nil {
		return domain.WaitlistEntry{}, NewValidationError("business_id, occurrence_id and customer_id are required")
	}

	var out domain.WaitlistEntry
	err := c.repo.InOccurrenceTransaction(ctx, businessID, occurrenceID, func(ctx context.Context, tx store.WaitlistTx) error {
		existing, err := tx.FindPendingByCustomer(ctx, customerID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		n, err := tx.CountEntries(ctx)
		if err != nil {
			return err
		}
		entry, err := tx.InsertEntry(ctx, domain.WaitlistEntry{
			BusinessID:   businessID,
			OccurrenceID: occurrenceID,
			CustomerID:   customerID,
			Position:     n + 1,
			Status:       domain.WaitlistStatusPending,
		})
		if err != nil {
			return err
		}
		if err := tx.AddWaitlistCount(ctx, 1); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	return out, nil
}

// PromoteNext marks the oldest pending entry PROMOTED once the occurrence has
// a seat that is neither booked nor held by a recent promotion. A full
// occurrence is left untouched.
func (c *WaitlistCoordinator) PromoteNext(ctx context.Context, businessID, occurrenceID uuid.UUID) (domain.WaitlistEntry, error) {
	if businessID == uuid.Nil || occurrenceID == uuid.Nil {
		return domain.WaitlistEntry{}, NewValidationError("business_id and occurrence_id are required")
	}

	var out domain.WaitlistEntry
	err := c.repo.InOccurrenceTransaction(ctx, businessID, occurrenceID, func(ctx context.Context, tx store.WaitlistTx) error {
		occ := tx.Occurrence()
		if occ.Full() {
			return ErrClassStillFull
		}
		now := c.now().UTC()
		if c.hold > 0 {
			held, err := tx.CountPromotedSince(ctx, now.Add(-c.hold))
			if err != nil {
				return err
			}
			if occ.BookedCount+held >= occ.Capacity {
				return ErrClassStillFull
			}
		}

		entry, err := tx.NextPending(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoWaitlistEntries
		}
		if err != nil {
			return err
		}

		if err := tx.SetEntryStatus(ctx, entry.ID, domain.WaitlistStatusPromoted, now); err != nil {
			return err
		}
		if err := tx.AddWaitlistCount(ctx, -1); err != nil {
			return err
		}
		entry.Status = domain.WaitlistStatusPromoted
		entry.PromotedAt = &now

		payload, err := json.Marshal(WaitlistPromotedEvent{
			EntryID:      entry.ID.String(),
			BusinessID:   businessID.String(),
			OccurrenceID: occurrenceID.String(),
			CustomerID:   entry.CustomerID.String(),
			Position:     entry.Position,
			PromotedAt:   now,
		})
		if err != nil {
			return err
		}
		if err := tx.Enqueue(ctx, store.OutboxEvent{
			AggregateType: "waitlist_entry",
			AggregateID:   entry.ID.String(),
			EventType:     EventWaitlistPromoted,
			Payload:       payload,
		}); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	return out, nil
}

// Remove takes an entry out of the queue. Its position stays burnt.
func (c *WaitlistCoordinator) Remove(ctx context.Context, businessID, entryID uuid.UUID) (domain.WaitlistEntry, error) {
	if businessID == uuid.Nil || entryID == uuid.Nil {
		return domain.WaitlistEntry{}, NewValidationError("business_id and entry_id are required")
	}
	entry, err := c.repo.GetEntry(ctx, businessID, entryID)
	if err != nil {
		return domain.WaitlistEntry{}, err
	}

	var out domain.WaitlistEntry
	err = c.repo.InOccurrenceTransaction(ctx, businessID, entry.OccurrenceID, func(ctx context.Context, tx store.WaitlistTx) error {
		locked, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if locked.Status == domain.WaitlistStatusRemoved {
			out = locked
			return nil
		}

		now := c.now().UTC()
		if err := tx.SetEntryStatus(ctx, locked.ID, domain.WaitlistStatusRemoved, now); err != nil {
			return err
		}
		if locked.Status == domain.WaitlistStatusPending {
			if err := tx.AddWaitlistCount(ctx, -1); err != nil {
				return err
			}
		}
		locked.Status = domain.WaitlistStatusRemoved
		locked.RemovedAt = &now
		out = locked
		return nil
	})
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	return out, nil
}
