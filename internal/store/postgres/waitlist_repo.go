package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type WaitlistRepo struct {
	db bun.IDB
}

func NewWaitlistRepo(db bun.IDB) *WaitlistRepo {
	return &WaitlistRepo{db: db}
}

// waitlistTx runs with the occurrence row locked, which serializes every
// writer of the occurrence's queue and counters.
type waitlistTx struct {
	tx  bun.Tx
	occ domain.ClassOccurrence
}

func (r *WaitlistRepo) InOccurrenceTransaction(ctx context.Context, businessID, occurrenceID uuid.UUID, fn func(ctx context.Context, tx store.WaitlistTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		occ, err := getOccurrence(ctx, tx, businessID, occurrenceID, true)
		if err != nil {
			return err
		}
		return fn(ctx, &waitlistTx{tx: tx, occ: occ})
	})
}

func (r *WaitlistRepo) GetEntry(ctx context.Context, businessID, entryID uuid.UUID) (domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	err := r.db.NewSelect().
		Model(&e).
		Where("we.business_id = ?", businessID).
		Where("we.id = ?", entryID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.WaitlistEntry{}, notFound(err)
	}
	return e, nil
}

func (w *waitlistTx) Occurrence() domain.ClassOccurrence {
	return w.occ
}

func (w *waitlistTx) entries() *bun.SelectQuery {
	return w.tx.NewSelect().
		Model((*domain.WaitlistEntry)(nil)).
		Where("we.business_id = ?", w.occ.BusinessID).
		Where("we.occurrence_id = ?", w.occ.ID)
}

func (w *waitlistTx) CountEntries(ctx context.Context) (int, error) {
	return w.entries().Count(ctx)
}

func (w *waitlistTx) FindPendingByCustomer(ctx context.Context, customerID uuid.UUID) (domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	err := w.tx.NewSelect().
		Model(&e).
		Where("we.business_id = ?", w.occ.BusinessID).
		Where("we.occurrence_id = ?", w.occ.ID).
		Where("we.customer_id = ?", customerID).
		Where("we.status = ?", domain.WaitlistStatusPending).
		OrderExpr("we.position ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.WaitlistEntry{}, notFound(err)
	}
	return e, nil
}

func (w *waitlistTx) InsertEntry(ctx context.Context, e domain.WaitlistEntry) (domain.WaitlistEntry, error) {
	m := e
	if _, err := w.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return domain.WaitlistEntry{}, store.ErrConflict
		}
		return domain.WaitlistEntry{}, err
	}
	return m, nil
}

func (w *waitlistTx) NextPending(ctx context.Context) (domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	err := w.tx.NewSelect().
		Model(&e).
		Where("we.business_id = ?", w.occ.BusinessID).
		Where("we.occurrence_id = ?", w.occ.ID).
		Where("we.status = ?", domain.WaitlistStatusPending).
		OrderExpr("we.position ASC, we.id ASC").
		Limit(1).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return domain.WaitlistEntry{}, notFound(err)
	}
	return e, nil
}

func (w *waitlistTx) CountPromotedSince(ctx context.Context, since time.Time) (int, error) {
	return w.entries().
		Where("we.status = ?", domain.WaitlistStatusPromoted).
		Where("we.promoted_at >= ?", since).
		Count(ctx)
}

func (w *waitlistTx) GetEntryForUpdate(ctx context.Context, entryID uuid.UUID) (domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	err := w.tx.NewSelect().
		Model(&e).
		Where("we.business_id = ?", w.occ.BusinessID).
		Where("we.occurrence_id = ?", w.occ.ID).
		Where("we.id = ?", entryID).
		Limit(1).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return domain.WaitlistEntry{}, notFound(err)
	}
	return e, nil
}

func (w *waitlistTx) SetEntryStatus(ctx context.Context, entryID uuid.UUID, status domain.WaitlistStatus, at time.Time) error {
	q := w.tx.NewUpdate().
		Model((*domain.WaitlistEntry)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", at)
	switch status {
	case domain.WaitlistStatusPromoted:
		q = q.Set("promoted_at = ?", at)
	case domain.WaitlistStatusRemoved:
		q = q.Set("removed_at = ?", at)
	}
	res, err := q.
		Where("business_id = ?", w.occ.BusinessID).
		Where("occurrence_id = ?", w.occ.ID).
		Where("id = ?", entryID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (w *waitlistTx) AddWaitlistCount(ctx context.Context, delta int) error {
	var count int
	err := w.tx.NewUpdate().
		Model((*domain.ClassOccurrence)(nil)).
		Set("waitlist_count = GREATEST(waitlist_count + ?, 0)", delta).
		Set("updated_at = ?", time.Now().UTC()).
		Where("business_id = ?", w.occ.BusinessID).
		Where("id = ?", w.occ.ID).
		Returning("waitlist_count").
		Scan(ctx, &count)
	if err != nil {
		return err
	}
	w.occ.WaitlistCount = count
	return nil
}

func (w *waitlistTx) Enqueue(ctx context.Context, ev store.OutboxEvent) error {
	return insertOutbox(ctx, w.tx, ev)
}
