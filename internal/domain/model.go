package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// stamp fills ids and timestamps the way every table expects them: UUIDv7 ids
// on insert, created_at/updated_at in UTC.
func stamp(query bun.Query, id *uuid.UUID, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if *id == uuid.Nil {
			v, err := uuid.NewV7()
			if err != nil {
				return err
			}
			*id = v
		}
		if createdAt.IsZero() {
			*createdAt = now
		}
		if updatedAt.IsZero() {
			*updatedAt = now
		}
	case *bun.UpdateQuery:
		*updatedAt = now
	}
	return nil
}

var (
	_ bun.BeforeAppendModelHook = (*Appointment)(nil)
	_ bun.BeforeAppendModelHook = (*Service)(nil)
	_ bun.BeforeAppendModelHook = (*StaffMember)(nil)
	_ bun.BeforeAppendModelHook = (*AvailabilityBlock)(nil)
	_ bun.BeforeAppendModelHook = (*ClassTemplate)(nil)
	_ bun.BeforeAppendModelHook = (*ClassOccurrence)(nil)
	_ bun.BeforeAppendModelHook = (*WaitlistEntry)(nil)
)

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (m *StaffMember) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (b *AvailabilityBlock) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (t *ClassTemplate) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (o *ClassOccurrence) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (e *WaitlistEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &e.ID, &e.CreatedAt, &e.UpdatedAt)
}
