package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type ClassRepo struct {
	db bun.IDB
}

func NewClassRepo(db bun.IDB) *ClassRepo {
	return &ClassRepo{db: db}
}

func (r *ClassRepo) GetTemplate(ctx context.Context, businessID, templateID uuid.UUID) (domain.ClassTemplate, error) {
	var t domain.ClassTemplate
	err := r.db.NewSelect().
		Model(&t).
		Where("ct.business_id = ?", businessID).
		Where("ct.id = ?", templateID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.ClassTemplate{}, notFound(err)
	}
	return t, nil
}

func (r *ClassRepo) GetOccurrence(ctx context.Context, businessID, occurrenceID uuid.UUID) (domain.ClassOccurrence, error) {
	return getOccurrence(ctx, r.db, businessID, occurrenceID, false)
}

// CreateOccurrences inserts the whole batch or nothing.
func (r *ClassRepo) CreateOccurrences(ctx context.Context, occs []domain.ClassOccurrence) ([]domain.ClassOccurrence, error) {
	if len(occs) == 0 {
		return nil, nil
	}
	rows := append([]domain.ClassOccurrence(nil), occs...)
	for i := range rows {
		if rows[i].ID != uuid.Nil {
			continue
		}
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		rows[i].ID = id
	}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return rows, nil
}

func (r *ClassRepo) AdjustBookedCount(ctx context.Context, businessID, occurrenceID uuid.UUID, delta int) (domain.ClassOccurrence, error) {
	var out domain.ClassOccurrence
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		occ, err := getOccurrence(ctx, tx, businessID, occurrenceID, true)
		if err != nil {
			return err
		}
		next := occ.BookedCount + delta
		if delta > 0 && next > occ.Capacity {
			return store.ErrCapacityExceeded
		}
		if next < 0 {
			next = 0
		}
		if next == occ.BookedCount {
			out = occ
			return nil
		}

		now := time.Now().UTC()
		_, err = tx.NewUpdate().
			Model((*domain.ClassOccurrence)(nil)).
			Set("booked_count = ?", next).
			Set("updated_at = ?", now).
			Where("business_id = ?", businessID).
			Where("id = ?", occurrenceID).
			Exec(ctx)
		if err != nil {
			return err
		}
		occ.BookedCount = next
		occ.UpdatedAt = now
		out = occ
		return nil
	})
	if err != nil {
		return domain.ClassOccurrence{}, err
	}
	return out, nil
}

func getOccurrence(ctx context.Context, db bun.IDB, businessID, occurrenceID uuid.UUID, forUpdate bool) (domain.ClassOccurrence, error) {
	var o domain.ClassOccurrence
	q := db.NewSelect().
		Model(&o).
		Where("co.business_id = ?", businessID).
		Where("co.id = ?", occurrenceID).
		Limit(1)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return domain.ClassOccurrence{}, notFound(err)
	}
	return o, nil
}
