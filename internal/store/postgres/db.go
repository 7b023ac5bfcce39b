package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func Open(ctx context.Context, databaseURL string, pool PoolConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// lockKey takes a transaction-scoped advisory lock. Keys are namespaced by
// tenant so unrelated businesses never wait on each other.
func lockKey(ctx context.Context, tx bun.Tx, businessID, key string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", businessID+":"+key).Exec(ctx)
	return err
}

var (
	_ store.ServiceRepository      = (*CatalogRepo)(nil)
	_ store.StaffRepository        = (*CatalogRepo)(nil)
	_ store.AvailabilityRepository = (*CatalogRepo)(nil)
	_ store.AppointmentRepository  = (*AppointmentRepo)(nil)
	_ store.BookingTx              = bookingTx{}
	_ store.ClassRepository        = (*ClassRepo)(nil)
	_ store.WaitlistRepository     = (*WaitlistRepo)(nil)
	_ store.WaitlistTx             = (*waitlistTx)(nil)
	_ store.OutboxRepository       = (*OutboxRepo)(nil)
)
