package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
)

// ActiveAppointmentStatuses are the statuses that hold a staff member's time
// and consume seats.
var ActiveAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
}

func (s AppointmentStatus) Active() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// Appointment stores the unbuffered interval. Buffers belong to the Service
// and are applied when conflicts are checked.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID          uuid.UUID         `bun:"id,pk,type:uuid"`
	BusinessID  uuid.UUID         `bun:"business_id,notnull,type:uuid"`
	ServiceID   uuid.UUID         `bun:"service_id,notnull,type:uuid"`
	StaffID     *uuid.UUID        `bun:"staff_id,type:uuid"`
	CustomerID  uuid.UUID         `bun:"customer_id,notnull,type:uuid"`
	StartTime   time.Time         `bun:"start_time,notnull"`
	EndTime     time.Time         `bun:"end_time,notnull"`
	Status      AppointmentStatus `bun:"status,notnull"`
	CancelledAt *time.Time        `bun:"cancelled_at"`
	CreatedAt   time.Time         `bun:"created_at,notnull"`
	UpdatedAt   time.Time         `bun:"updated_at,notnull"`
}
