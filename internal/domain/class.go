package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ClassTemplate struct {
	bun.BaseModel `bun:"table:class_templates,alias:ct"`

	ID                  uuid.UUID  `bun:"id,pk,type:uuid"`
	BusinessID          uuid.UUID  `bun:"business_id,notnull,type:uuid"`
	Name                string     `bun:"name,notnull"`
	DurationMinutes     int        `bun:"duration_minutes,notnull"`
	DefaultCapacity     int        `bun:"default_capacity,notnull"`
	DefaultInstructorID *uuid.UUID `bun:"default_instructor_id,type:uuid"`
	CreatedAt           time.Time  `bun:"created_at,notnull"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull"`
}

func (t ClassTemplate) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

type OccurrenceStatus string

const (
	OccurrenceStatusScheduled OccurrenceStatus = "SCHEDULED"
	OccurrenceStatusCancelled OccurrenceStatus = "CANCELLED"
)

type ClassOccurrence struct {
	bun.BaseModel `bun:"table:class_occurrences,alias:co"`

	ID            uuid.UUID        `bun:"id,pk,type:uuid"`
	BusinessID    uuid.UUID        `bun:"business_id,notnull,type:uuid"`
	TemplateID    uuid.UUID        `bun:"template_id,notnull,type:uuid"`
	InstructorID  *uuid.UUID       `bun:"instructor_id,type:uuid"`
	StartTime     time.Time        `bun:"start_time,notnull"`
	EndTime       time.Time        `bun:"end_time,notnull"`
	Capacity      int              `bun:"capacity,notnull"`
	BookedCount   int              `bun:"booked_count,notnull"`
	WaitlistCount int              `bun:"waitlist_count,notnull"`
	Status        OccurrenceStatus `bun:"status,notnull"`
	CreatedAt     time.Time        `bun:"created_at,notnull"`
	UpdatedAt     time.Time        `bun:"updated_at,notnull"`
}

func (o ClassOccurrence) Full() bool {
	return o.BookedCount >= o.Capacity
}
