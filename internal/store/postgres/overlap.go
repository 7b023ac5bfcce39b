package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

func overlapQuery(db bun.IDB, f store.AppointmentFilter) *bun.SelectQuery {
	q := db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("a.business_id = ?", f.BusinessID).
		Where("a.status IN (?)", bun.In(domain.ActiveAppointmentStatuses))

	if f.StaffID != nil {
		q = q.Where("a.staff_id = ?", *f.StaffID)
	}
	if f.ServiceID != nil {
		q = q.Where("a.service_id = ?", *f.ServiceID)
	}
	if f.ExcludeServiceID != nil {
		q = q.Where("a.service_id <> ?", *f.ExcludeServiceID)
	}
	if f.ExcludeAppointmentID != nil {
		q = q.Where("a.id <> ?", *f.ExcludeAppointmentID)
	}

	if f.Raw == nil {
		return q.Where("a.start_time < ?", f.End).Where("a.end_time > ?", f.Start)
	}
	// The existing row's own buffers come from its service.
	return q.
		Join("JOIN services AS s ON s.id = a.service_id AND s.business_id = a.business_id").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("a.start_time < ? AND a.end_time > ?", f.End, f.Start).
				WhereOr("a.start_time - make_interval(mins => s.buffer_before_minutes) < ? AND a.end_time + make_interval(mins => s.buffer_after_minutes) > ?", f.Raw.End, f.Raw.Start)
		})
}

func anyOverlapping(ctx context.Context, db bun.IDB, f store.AppointmentFilter) (bool, error) {
	return overlapQuery(db, f).Exists(ctx)
}

func countOverlapping(ctx context.Context, db bun.IDB, f store.AppointmentFilter) (int, error) {
	return overlapQuery(db, f).Count(ctx)
}
