package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type ConflictQuery struct {
	BusinessID uuid.UUID
	StaffID    *uuid.UUID

	// BufferedStart/BufferedEnd are the candidate interval widened by its own
	// service buffers; they are compared with the stored (unbuffered)
	// intervals of existing appointments.
	BufferedStart time.Time
	BufferedEnd   time.Time

	// Start/End, when set, are the candidate's unbuffered interval. Existing
	// appointments then also conflict if their own service buffers reach
	// into it.
	Start time.Time
	End   time.Time

	ExcludeAppointmentID *uuid.UUID
	ServiceID            *uuid.UUID
	AllowSharedSlots     bool
}

type ConflictDetector struct {
	appts store.OverlapReader
}

func NewConflictDetector(appts store.OverlapReader) *ConflictDetector {
	return &ConflictDetector{appts: appts}
}

// HasConflict reports whether an active appointment of the staff member
// overlaps the query. Unassigned queries never conflict. With
// AllowSharedSlots and a ServiceID, appointments of that same service are
// ignored so a shared slot can fill up.
func (d *ConflictDetector) HasConflict(ctx context.Context, q ConflictQuery) (bool, error) {
	if q.StaffID == nil {
		return false, nil
	}
	f := store.AppointmentFilter{
		BusinessID:           q.BusinessID,
		StaffID:              q.StaffID,
		ExcludeAppointmentID: q.ExcludeAppointmentID,
		Start:                q.BufferedStart,
		End:                  q.BufferedEnd,
	}
	if !q.Start.IsZero() && q.End.After(q.Start) {
		f.Raw = &store.TimeRange{Start: q.Start, End: q.End}
	}
	if q.AllowSharedSlots && q.ServiceID != nil {
		f.ExcludeServiceID = q.ServiceID
	}
	return d.appts.AnyOverlapping(ctx, f)
}
