package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
)

// CatalogRepo reads the tenant configuration the booking engine decides on:
// services, staff, assignments and availability.
type CatalogRepo struct {
	db bun.IDB
}

func NewCatalogRepo(db bun.IDB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) GetService(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Service, error) {
	var s domain.Service
	err := r.db.NewSelect().
		Model(&s).
		Where("s.business_id = ?", businessID).
		Where("s.id = ?", serviceID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Service{}, notFound(err)
	}
	return s, nil
}

func (r *CatalogRepo) GetStaff(ctx context.Context, businessID, staffID uuid.UUID) (domain.StaffMember, error) {
	var m domain.StaffMember
	err := r.db.NewSelect().
		Model(&m).
		Where("sm.business_id = ?", businessID).
		Where("sm.id = ?", staffID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.StaffMember{}, notFound(err)
	}
	return m, nil
}

func (r *CatalogRepo) ListServiceStaff(ctx context.Context, businessID, serviceID uuid.UUID) ([]domain.ServiceStaff, error) {
	var rows []domain.ServiceStaff
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Staff").
		Where("ss.business_id = ?", businessID).
		Where("ss.service_id = ?", serviceID).
		OrderExpr("ss.is_primary DESC, ss.sort_order ASC, ss.staff_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CatalogRepo) ListBlocksForDay(ctx context.Context, businessID, staffID uuid.UUID, onDate time.Time) ([]domain.AvailabilityBlock, error) {
	day := onDate.Format("2006-01-02")
	var rows []domain.AvailabilityBlock
	err := r.db.NewSelect().
		Model(&rows).
		Where("ab.business_id = ?", businessID).
		Where("ab.staff_id = ?", staffID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("ab.is_override AND ab.date = ?::date", day).
				WhereOr("NOT ab.is_override AND ab.day_of_week = ?", int16(onDate.Weekday()))
		}).
		OrderExpr("ab.start_time ASC, ab.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
