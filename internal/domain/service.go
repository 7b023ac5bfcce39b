package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CapacityType string

const (
	CapacityTypeSingle CapacityType = "SINGLE"
	CapacityTypeMulti  CapacityType = "MULTI"
)

type Service struct {
	bun.BaseModel `bun:"table:services,alias:s"`

	ID                  uuid.UUID    `bun:"id,pk,type:uuid"`
	BusinessID          uuid.UUID    `bun:"business_id,notnull,type:uuid"`
	Name                string       `bun:"name,notnull"`
	DurationMinutes     int          `bun:"duration_minutes,notnull"`
	BufferBeforeMinutes int          `bun:"buffer_before_minutes,notnull"`
	BufferAfterMinutes  int          `bun:"buffer_after_minutes,notnull"`
	CapacityType        CapacityType `bun:"capacity_type,notnull"`
	MaxClientsPerSlot   int          `bun:"max_clients_per_slot,notnull"`
	AllowAnyStaff       bool         `bun:"allow_any_staff,notnull"`
	CreatedAt           time.Time    `bun:"created_at,notnull"`
	UpdatedAt           time.Time    `bun:"updated_at,notnull"`
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// Buffered widens [start, end) by the service's buffer minutes.
func (s Service) Buffered(start, end time.Time) (time.Time, time.Time) {
	return start.Add(-time.Duration(s.BufferBeforeMinutes) * time.Minute),
		end.Add(time.Duration(s.BufferAfterMinutes) * time.Minute)
}

// Shared reports whether several clients may hold the same staff/time slot.
func (s Service) Shared() bool {
	return s.CapacityType == CapacityTypeMulti
}

// ErrCapacityMisconfigured marks a capacity type and seat count that do not
// fit together.
var ErrCapacityMisconfigured = errors.New("capacity misconfigured")

func (s Service) Validate() error {
	if s.DurationMinutes <= 0 {
		return errors.New("duration must be positive")
	}
	if s.BufferBeforeMinutes < 0 || s.BufferAfterMinutes < 0 {
		return errors.New("buffers must not be negative")
	}
	switch s.CapacityType {
	case CapacityTypeSingle:
		if s.MaxClientsPerSlot != 1 {
			return fmt.Errorf("%w: single capacity services must allow exactly one client per slot", ErrCapacityMisconfigured)
		}
	case CapacityTypeMulti:
		if s.MaxClientsPerSlot < 1 {
			return fmt.Errorf("%w: max clients per slot must be at least 1", ErrCapacityMisconfigured)
		}
	default:
		return fmt.Errorf("%w: unknown capacity type", ErrCapacityMisconfigured)
	}
	return nil
}

// ServiceStaff assigns a staff member to a service. Candidates are tried by
// primary first, then SortOrder, then staff id.
type ServiceStaff struct {
	bun.BaseModel `bun:"table:service_staff,alias:ss"`

	BusinessID uuid.UUID `bun:"business_id,notnull,type:uuid"`
	ServiceID  uuid.UUID `bun:"service_id,pk,type:uuid"`
	StaffID    uuid.UUID `bun:"staff_id,pk,type:uuid"`
	SortOrder  int       `bun:"sort_order,notnull"`
	IsPrimary  bool      `bun:"is_primary,notnull"`

	Staff *StaffMember `bun:"rel:belongs-to,join:staff_id=id"`
}
