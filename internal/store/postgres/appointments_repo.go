package postgres

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type AppointmentRepo struct {
	db bun.IDB
}

func NewAppointmentRepo(db bun.IDB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) AnyOverlapping(ctx context.Context, f store.AppointmentFilter) (bool, error) {
	return anyOverlapping(ctx, r.db, f)
}

func (r *AppointmentRepo) CountOverlapping(ctx context.Context, f store.AppointmentFilter) (int, error) {
	return countOverlapping(ctx, r.db, f)
}

func (r *AppointmentRepo) GetAppointment(ctx context.Context, businessID, appointmentID uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.db.NewSelect().
		Model(&a).
		Where("a.business_id = ?", businessID).
		Where("a.id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, notFound(err)
	}
	return a, nil
}

func (r *AppointmentRepo) ListAppointments(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("a.business_id = ?", businessID).
		Where("a.start_time < ?", windowEnd).
		Where("a.end_time > ?", windowStart).
		OrderExpr("a.start_time ASC, a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// InBookingTransaction takes the advisory locks in sorted order so writers
// sharing keys cannot deadlock.
func (r *AppointmentRepo) InBookingTransaction(ctx context.Context, businessID uuid.UUID, lockKeys []string, fn func(ctx context.Context, tx store.BookingTx) error) error {
	keys := append([]string(nil), lockKeys...)
	sort.Strings(keys)
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i, k := range keys {
			if i > 0 && keys[i-1] == k {
				continue
			}
			if err := lockKey(ctx, tx, businessID.String(), k); err != nil {
				return err
			}
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

func (b bookingTx) AnyOverlapping(ctx context.Context, f store.AppointmentFilter) (bool, error) {
	return anyOverlapping(ctx, b.tx, f)
}

func (b bookingTx) CountOverlapping(ctx context.Context, f store.AppointmentFilter) (int, error) {
	return countOverlapping(ctx, b.tx, f)
}

// CreateAppointment inserts appt. Replaying an id that already exists
// returns the stored row when it describes the same booking, and
// ErrIdempotencyConflict otherwise.
func (b bookingTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := b.tx.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected > 0 {
		return m, nil
	}

	var existing domain.Appointment
	err = b.tx.NewSelect().
		Model(&existing).
		Where("a.id = ?", m.ID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, notFound(err)
	}
	if !sameBooking(existing, appt) {
		return domain.Appointment{}, store.ErrIdempotencyConflict
	}
	return existing, nil
}

func sameBooking(a, b domain.Appointment) bool {
	if a.BusinessID != b.BusinessID || a.ServiceID != b.ServiceID || a.CustomerID != b.CustomerID {
		return false
	}
	if !a.StartTime.Equal(b.StartTime) || !a.EndTime.Equal(b.EndTime) {
		return false
	}
	// The staff member is picked by the engine; a replay may legitimately
	// resolve to someone else, so it is not compared.
	return true
}

func (b bookingTx) GetAppointmentForUpdate(ctx context.Context, businessID, appointmentID uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := b.tx.NewSelect().
		Model(&a).
		Where("a.business_id = ?", businessID).
		Where("a.id = ?", appointmentID).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, notFound(err)
	}
	return a, nil
}

func (b bookingTx) CancelAppointment(ctx context.Context, businessID, appointmentID uuid.UUID, at time.Time) error {
	res, err := b.tx.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("status = ?", domain.AppointmentStatusCancelled).
		Set("cancelled_at = ?", at).
		Set("updated_at = ?", at).
		Where("business_id = ?", businessID).
		Where("id = ?", appointmentID).
		Where("status IN (?)", bun.In(domain.ActiveAppointmentStatuses)).
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

func (b bookingTx) Enqueue(ctx context.Context, ev store.OutboxEvent) error {
	return insertOutbox(ctx, b.tx, ev)
}
