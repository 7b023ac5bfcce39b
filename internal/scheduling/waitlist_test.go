package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type memWaitlist struct {
	occurrences map[uuid.UUID]*domain.ClassOccurrence
	entries     []*domain.WaitlistEntry
	events      []store.OutboxEvent
}

func newMemWaitlist(occ domain.ClassOccurrence) *memWaitlist {
	return &memWaitlist{occurrences: map[uuid.UUID]*domain.ClassOccurrence{occ.ID: &occ}}
}

func (w *memWaitlist) InOccurrenceTransaction(ctx context.Context, businessID, occurrenceID uuid.UUID, fn func(ctx context.Context, tx store.WaitlistTx) error) error {
	occ, ok := w.occurrences[occurrenceID]
	if !ok || occ.BusinessID != businessID {
		return store.ErrNotFound
	}
	// Work on copies so a failing fn leaves nothing behind.
	tx := &memWaitlistTx{occ: *occ}
	for _, e := range w.entries {
		if e.OccurrenceID == occurrenceID {
			cp := *e
			tx.entries = append(tx.entries, &cp)
		}
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	*occ = tx.occ
	kept := w.entries[:0:0]
	for _, e := range w.entries {
		if e.OccurrenceID != occurrenceID {
			kept = append(kept, e)
		}
	}
	w.entries = append(kept, tx.entries...)
	w.events = append(w.events, tx.events...)
	return nil
}

func (w *memWaitlist) GetEntry(ctx context.Context, businessID, entryID uuid.UUID) (domain.WaitlistEntry, error) {
	for _, e := range w.entries {
		if e.ID == entryID && e.BusinessID == businessID {
			return *e, nil
		}
	}
	return domain.WaitlistEntry{}, store.ErrNotFound
}

func (w *memWaitlist) entry(id uuid.UUID) domain.WaitlistEntry {
	for _, e := range w.entries {
		if e.ID == id {
			return *e
		}
	}
	return domain.WaitlistEntry{}
}

type memWaitlistTx struct {
	occ     domain.ClassOccurrence
	entries []*domain.WaitlistEntry
	events  []store.OutboxEvent
}

func (tx *memWaitlistTx) Occurrence() domain.ClassOccurrence { return tx.occ }

func (tx *memWaitlistTx) CountEntries(ctx context.Context) (int, error) {
	return len(tx.entries), nil
}

func (tx *memWaitlistTx) FindPendingByCustomer(ctx context.Context, customerID uuid.UUID) (domain.WaitlistEntry, error) {
	for _, e := range tx.entries {
		if e.CustomerID == customerID && e.Status == domain.WaitlistStatusPending {
			return *e, nil
		}
	}
	return domain.WaitlistEntry{}, store.ErrNotFound
}

func (tx *memWaitlistTx) InsertEntry(ctx context.Context, e domain.WaitlistEntry) (domain.WaitlistEntry, error) {
	for _, existing := range tx.entries {
		if existing.Position == e.Position {
			return domain.WaitlistEntry{}, store.ErrConflict
		}
	}
	e.ID = uuid.New()
	tx.entries = append(tx.entries, &e)
	return e, nil
}

func (tx *memWaitlistTx) NextPending(ctx context.Context) (domain.WaitlistEntry, error) {
	var pending []*domain.WaitlistEntry
	for _, e := range tx.entries {
		if e.Status == domain.WaitlistStatusPending {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		return domain.WaitlistEntry{}, store.ErrNotFound
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Position < pending[j].Position })
	return *pending[0], nil
}

func (tx *memWaitlistTx) CountPromotedSince(ctx context.Context, since time.Time) (int, error) {
	n := 0
	for _, e := range tx.entries {
		if e.Status == domain.WaitlistStatusPromoted && e.PromotedAt != nil && !e.PromotedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (tx *memWaitlistTx) GetEntryForUpdate(ctx context.Context, entryID uuid.UUID) (domain.WaitlistEntry, error) {
	for _, e := range tx.entries {
		if e.ID == entryID {
			return *e, nil
		}
	}
	return domain.WaitlistEntry{}, store.ErrNotFound
}

func (tx *memWaitlistTx) SetEntryStatus(ctx context.Context, entryID uuid.UUID, status domain.WaitlistStatus, at time.Time) error {
	for _, e := range tx.entries {
		if e.ID == entryID {
			e.Status = status
			switch status {
			case domain.WaitlistStatusPromoted:
				e.PromotedAt = &at
			case domain.WaitlistStatusRemoved:
				e.RemovedAt = &at
			}
			return nil
		}
	}
	return store.ErrNotFound
}

func (tx *memWaitlistTx) AddWaitlistCount(ctx context.Context, delta int) error {
	tx.occ.WaitlistCount += delta
	return nil
}

func (tx *memWaitlistTx) Enqueue(ctx context.Context, ev store.OutboxEvent) error {
	tx.events = append(tx.events, ev)
	return nil
}

func testOccurrence(capacity, booked int) domain.ClassOccurrence {
	return domain.ClassOccurrence{
		ID:          uuid.New(),
		BusinessID:  bizID,
		TemplateID:  uuid.New(),
		StartTime:   at(18, 0),
		EndTime:     at(19, 0),
		Capacity:    capacity,
		BookedCount: booked,
		Status:      domain.OccurrenceStatusScheduled,
	}
}

func TestWaitlist_PromotesInPositionOrderAcrossGaps(t *testing.T) {
	occ := testOccurrence(10, 10)
	w := newMemWaitlist(occ)
	c := NewWaitlistCoordinator(w, 0)
	ctx := context.Background()

	var entries []domain.WaitlistEntry
	for i := 0; i < 4; i++ {
		e, err := c.Join(ctx, bizID, occ.ID, uuid.New())
		if err != nil {
			t.Fatalf("Join error: %v", err)
		}
		if e.Position != i+1 {
			t.Fatalf("position = %d, want %d", e.Position, i+1)
		}
		entries = append(entries, e)
	}
	if _, err := c.Remove(ctx, bizID, entries[1].ID); err != nil {
		t.Fatalf("Remove error: %v", err)
	}

	w.occurrences[occ.ID].BookedCount = 5
	for _, want := range []int{1, 3, 4} {
		got, err := c.PromoteNext(ctx, bizID, occ.ID)
		if err != nil {
			t.Fatalf("PromoteNext error: %v", err)
		}
		if got.Position != want {
			t.Fatalf("promoted position %d, want %d", got.Position, want)
		}
		if got.Status != domain.WaitlistStatusPromoted || got.PromotedAt == nil {
			t.Fatalf("promoted entry = %+v", got)
		}
	}
	if _, err := c.PromoteNext(ctx, bizID, occ.ID); !errors.Is(err, ErrNoWaitlistEntries) {
		t.Fatalf("error = %v, want ErrNoWaitlistEntries", err)
	}
	if got := w.occurrences[occ.ID].WaitlistCount; got != 0 {
		t.Fatalf("waitlist_count = %d, want 0", got)
	}
}

func TestWaitlist_FullOccurrenceIsNotMutated(t *testing.T) {
	occ := testOccurrence(2, 2)
	w := newMemWaitlist(occ)
	c := NewWaitlistCoordinator(w, 0)
	ctx := context.Background()

	e, err := c.Join(ctx, bizID, occ.ID, uuid.New())
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.PromoteNext(ctx, bizID, occ.ID); !errors.Is(err, ErrClassStillFull) {
			t.Fatalf("error = %v, want ErrClassStillFull", err)
		}
	}
	if got := w.entry(e.ID); got.Status != domain.WaitlistStatusPending || got.PromotedAt != nil {
		t.Fatalf("entry mutated: %+v", got)
	}
	if got := w.occurrences[occ.ID].WaitlistCount; got != 1 {
		t.Fatalf("waitlist_count = %d, want 1", got)
	}
	if len(w.events) != 0 {
		t.Fatalf("events = %d, want 0", len(w.events))
	}
}

func TestWaitlist_JoinIsIdempotentAndPositionsAreNotReused(t *testing.T) {
	occ := testOccurrence(1, 1)
	w := newMemWaitlist(occ)
	c := NewWaitlistCoordinator(w, 0)
	ctx := context.Background()
	customer := uuid.New()

	first, err := c.Join(ctx, bizID, occ.ID, customer)
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}
	again, err := c.Join(ctx, bizID, occ.ID, customer)
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}
	if again.ID != first.ID || again.Position != 1 {
		t.Fatalf("second join = %+v, want existing entry", again)
	}

	if _, err := c.Remove(ctx, bizID, first.ID); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	rejoined, err := c.Join(ctx, bizID, occ.ID, customer)
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}
	if rejoined.Position != 2 {
		t.Fatalf("rejoined position = %d, want 2", rejoined.Position)
	}
	if got := w.occurrences[occ.ID].WaitlistCount; got != 1 {
		t.Fatalf("waitlist_count = %d, want 1", got)
	}
}

func TestWaitlist_PromoteEnqueuesEvent(t *testing.T) {
	occ := testOccurrence(3, 2)
	w := newMemWaitlist(occ)
	c := NewWaitlistCoordinator(w, 0)
	fixed := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }
	ctx := context.Background()

	joined, err := c.Join(ctx, bizID, occ.ID, uuid.New())
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}
	if _, err := c.PromoteNext(ctx, bizID, occ.ID); err != nil {
		t.Fatalf("PromoteNext error: %v", err)
	}

	if len(w.events) != 1 {
		t.Fatalf("events = %d, want 1", len(w.events))
	}
	ev := w.events[0]
	if ev.EventType != EventWaitlistPromoted || ev.AggregateID != joined.ID.String() {
		t.Fatalf("event = %+v", ev)
	}
	var payload WaitlistPromotedEvent
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.CustomerID != joined.CustomerID.String() || !payload.PromotedAt.Equal(fixed) {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestWaitlist_RemovePromotedKeepsCount(t *testing.T) {
	occ := testOccurrence(3, 0)
	w := newMemWaitlist(occ)
	c := NewWaitlistCoordinator(w, 0)
	ctx := context.Background()

	e, err := c.Join(ctx, bizID, occ.ID, uuid.New())
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}
	if _, err := c.PromoteNext(ctx, bizID, occ.ID); err != nil {
		t.Fatalf("PromoteNext error: %v", err)
	}
	removed, err := c.Remove(ctx, bizID, e.ID)
	if err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if removed.Status != domain.WaitlistStatusRemoved {
		t.Fatalf("status = %s, want REMOVED", removed.Status)
	}
	if got := w.occurrences[occ.ID].WaitlistCount; got != 0 {
		t.Fatalf("waitlist_count = %d, want 0", got)
	}

	// Removing twice is a no-op.
	if _, err := c.Remove(ctx, bizID, e.ID); err != nil {
		t.Fatalf("second Remove error: %v", err)
	}
	if got := w.occurrences[occ.ID].WaitlistCount; got != 0 {
		t.Fatalf("waitlist_count = %d, want 0", got)
	}
}

func TestWaitlist_PromotionHoldsTheFreedSeat(t *testing.T) {
	occ := testOccurrence(3, 2)
	w := newMemWaitlist(occ)
	c := NewWaitlistCoordinator(w, DefaultPromotionHold)
	clock := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	var joined []domain.WaitlistEntry
	for i := 0; i < 3; i++ {
		e, err := c.Join(ctx, bizID, occ.ID, uuid.New())
		if err != nil {
			t.Fatalf("Join error: %v", err)
		}
		joined = append(joined, e)
	}

	first, err := c.PromoteNext(ctx, bizID, occ.ID)
	if err != nil {
		t.Fatalf("PromoteNext error: %v", err)
	}
	if first.ID != joined[0].ID {
		t.Fatalf("promoted %s, want first entry", first.ID)
	}

	// One free seat, already offered.
	if _, err := c.PromoteNext(ctx, bizID, occ.ID); !errors.Is(err, ErrClassStillFull) {
		t.Fatalf("second promotion error = %v, want ErrClassStillFull", err)
	}
	if got := w.entry(joined[1].ID); got.Status != domain.WaitlistStatusPending {
		t.Fatalf("second entry = %+v, want PENDING", got)
	}

	// The offer lapses and the seat goes to the next customer.
	clock = clock.Add(DefaultPromotionHold + time.Minute)
	second, err := c.PromoteNext(ctx, bizID, occ.ID)
	if err != nil {
		t.Fatalf("PromoteNext after hold error: %v", err)
	}
	if second.ID != joined[1].ID {
		t.Fatalf("promoted %s, want second entry", second.ID)
	}

	// Removing the outstanding promotion releases its seat at once.
	if _, err := c.Remove(ctx, bizID, second.ID); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	third, err := c.PromoteNext(ctx, bizID, occ.ID)
	if err != nil {
		t.Fatalf("PromoteNext after remove error: %v", err)
	}
	if third.ID != joined[2].ID {
		t.Fatalf("promoted %s, want third entry", third.ID)
	}
}

func TestWaitlist_UnknownOccurrence(t *testing.T) {
	c := NewWaitlistCoordinator(newMemWaitlist(testOccurrence(1, 0)), 0)
	if _, err := c.Join(context.Background(), bizID, uuid.New(), uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if _, err := c.Join(context.Background(), uuid.Nil, uuid.New(), uuid.New()); err == nil {
		t.Fatalf("expected validation error")
	}
}
