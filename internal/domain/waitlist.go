package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type WaitlistStatus string

const (
	WaitlistStatusPending  WaitlistStatus = "PENDING"
	WaitlistStatusPromoted WaitlistStatus = "PROMOTED"
	WaitlistStatusRemoved  WaitlistStatus = "REMOVED"
)

// WaitlistEntry positions are 1-based and append-only per occurrence; a
// removed entry keeps its position and it is never handed out again.
type WaitlistEntry struct {
	bun.BaseModel `bun:"table:waitlist_entries,alias:we"`

	ID           uuid.UUID      `bun:"id,pk,type:uuid"`
	BusinessID   uuid.UUID      `bun:"business_id,notnull,type:uuid"`
	OccurrenceID uuid.UUID      `bun:"occurrence_id,notnull,type:uuid"`
	CustomerID   uuid.UUID      `bun:"customer_id,notnull,type:uuid"`
	Position     int            `bun:"position,notnull"`
	Status       WaitlistStatus `bun:"status,notnull"`
	PromotedAt   *time.Time     `bun:"promoted_at"`
	RemovedAt    *time.Time     `bun:"removed_at"`
	CreatedAt    time.Time      `bun:"created_at,notnull"`
	UpdatedAt    time.Time      `bun:"updated_at,notnull"`
}
