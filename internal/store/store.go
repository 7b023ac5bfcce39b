package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
)

// AppointmentFilter selects active appointments of one business whose stored
// interval overlaps [Start, End) (half-open).
type AppointmentFilter struct {
	BusinessID           uuid.UUID
	StaffID              *uuid.UUID
	ServiceID            *uuid.UUID
	ExcludeServiceID     *uuid.UUID
	ExcludeAppointmentID *uuid.UUID
	Start                time.Time
	End                  time.Time

	// Raw, when set, also matches appointments whose own service buffers,
	// applied around their stored interval, overlap Raw.
	Raw *TimeRange
}

type TimeRange struct {
	Start time.Time
	End   time.Time
}

// OverlapReader answers the two questions the engine asks about existing
// appointments. Repositories implement it directly; BookingTx implements it
// against the locked transaction.
type OverlapReader interface {
	AnyOverlapping(ctx context.Context, f AppointmentFilter) (bool, error)
	CountOverlapping(ctx context.Context, f AppointmentFilter) (int, error)
}

type ServiceRepository interface {
	GetService(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Service, error)
}

type StaffRepository interface {
	GetStaff(ctx context.Context, businessID, staffID uuid.UUID) (domain.StaffMember, error)
	// ListServiceStaff returns assignments with Staff loaded, ordered by
	// is_primary desc, sort_order asc, staff_id asc.
	ListServiceStaff(ctx context.Context, businessID, serviceID uuid.UUID) ([]domain.ServiceStaff, error)
}

type AvailabilityRepository interface {
	// ListBlocksForDay returns override blocks dated onDate and weekly blocks
	// whose day_of_week equals onDate's weekday (0 is Sunday).
	ListBlocksForDay(ctx context.Context, businessID, staffID uuid.UUID, onDate time.Time) ([]domain.AvailabilityBlock, error)
}

type AppointmentRepository interface {
	OverlapReader

	GetAppointment(ctx context.Context, businessID, appointmentID uuid.UUID) (domain.Appointment, error)
	ListAppointments(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	// InBookingTransaction serializes writers that share a lock key, so the
	// conflict predicate re-checked inside fn holds at commit.
	InBookingTransaction(ctx context.Context, businessID uuid.UUID, lockKeys []string, fn func(ctx context.Context, tx BookingTx) error) error
}

type BookingTx interface {
	OverlapReader

	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, businessID, appointmentID uuid.UUID) (domain.Appointment, error)
	CancelAppointment(ctx context.Context, businessID, appointmentID uuid.UUID, at time.Time) error
	Enqueue(ctx context.Context, ev OutboxEvent) error
}

type ClassRepository interface {
	GetTemplate(ctx context.Context, businessID, templateID uuid.UUID) (domain.ClassTemplate, error)
	GetOccurrence(ctx context.Context, businessID, occurrenceID uuid.UUID) (domain.ClassOccurrence, error)
	CreateOccurrences(ctx context.Context, occs []domain.ClassOccurrence) ([]domain.ClassOccurrence, error)
	// AdjustBookedCount adds delta to booked_count under a row lock, refusing to
	// go above capacity (ErrCapacityExceeded) or below zero.
	AdjustBookedCount(ctx context.Context, businessID, occurrenceID uuid.UUID, delta int) (domain.ClassOccurrence, error)
}

type WaitlistRepository interface {
	// InOccurrenceTransaction locks the occurrence row for the duration of fn.
	InOccurrenceTransaction(ctx context.Context, businessID, occurrenceID uuid.UUID, fn func(ctx context.Context, tx WaitlistTx) error) error
	GetEntry(ctx context.Context, businessID, entryID uuid.UUID) (domain.WaitlistEntry, error)
}

type WaitlistTx interface {
	Occurrence() domain.ClassOccurrence
	CountEntries(ctx context.Context) (int, error)
	FindPendingByCustomer(ctx context.Context, customerID uuid.UUID) (domain.WaitlistEntry, error)
	InsertEntry(ctx context.Context, e domain.WaitlistEntry) (domain.WaitlistEntry, error)
	// NextPending returns the PENDING entry with the lowest position (id breaks
	// ties), or ErrNotFound.
	NextPending(ctx context.Context) (domain.WaitlistEntry, error)
	// CountPromotedSince counts entries still PROMOTED whose promotion happened
	// at or after since.
	CountPromotedSince(ctx context.Context, since time.Time) (int, error)
	GetEntryForUpdate(ctx context.Context, entryID uuid.UUID) (domain.WaitlistEntry, error)
	SetEntryStatus(ctx context.Context, entryID uuid.UUID, status domain.WaitlistStatus, at time.Time) error
	AddWaitlistCount(ctx context.Context, delta int) error
	Enqueue(ctx context.Context, ev OutboxEvent) error
}

// OutboxEvent is written in the same transaction as the change it announces.
// The Kafka topic is EventType.
type OutboxEvent struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxRecord is a stored event waiting to be published.
type OutboxRecord struct {
	ID            int64
	EventID       uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

type OutboxRepository interface {
	// ProcessBatch locks up to limit unpublished records, passes them to fn
	// and marks them published when fn returns nil. It returns how many
	// records were handed to fn.
	ProcessBatch(ctx context.Context, limit int, fn func(ctx context.Context, records []OutboxRecord) error) (int, error)
}
