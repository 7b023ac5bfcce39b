package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type panicReader struct{}

func (panicReader) AnyOverlapping(context.Context, store.AppointmentFilter) (bool, error) {
	panic("AnyOverlapping must not be called")
}

func (panicReader) CountOverlapping(context.Context, store.AppointmentFilter) (int, error) {
	panic("CountOverlapping must not be called")
}

func TestHasConflict_UnassignedNeverConflicts(t *testing.T) {
	got, err := NewConflictDetector(panicReader{}).HasConflict(context.Background(), ConflictQuery{
		BusinessID:    bizID,
		BufferedStart: at(9, 0),
		BufferedEnd:   at(10, 0),
	})
	if err != nil {
		t.Fatalf("HasConflict error: %v", err)
	}
	if got {
		t.Fatalf("unassigned query must not conflict")
	}
}

// A buffered appointment blocks the same window no matter which side of the
// comparison carries the buffer.
func TestHasConflict_BufferSymmetry(t *testing.T) {
	m := newMemStore()
	x := m.addStaff(activeStaff("x"))
	buffered := singleService(60)
	buffered.BufferBeforeMinutes = 10
	buffered.BufferAfterMinutes = 15
	m.addService(buffered)
	plain := m.addService(singleService(30))

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"ends at buffer start", at(9, 0), at(9, 50), false},
		{"reaches into buffer before", at(9, 0), at(9, 51), true},
		{"starts at buffer end", at(11, 15), at(11, 45), false},
		{"starts inside buffer after", at(11, 14), at(11, 44), true},
		{"inside the appointment", at(10, 15), at(10, 45), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Existing buffered appointment, new plain one.
			forward := newMemStore()
			forward.services = m.services
			forward.book(domain.Appointment{ServiceID: buffered.ID, StaffID: &x.ID, StartTime: at(10, 0), EndTime: at(11, 0)})
			gotForward, err := NewConflictDetector(forward).HasConflict(context.Background(), ConflictQuery{
				BusinessID:    bizID,
				StaffID:       &x.ID,
				BufferedStart: tt.start,
				BufferedEnd:   tt.end,
				Start:         tt.start,
				End:           tt.end,
			})
			if err != nil {
				t.Fatalf("HasConflict error: %v", err)
			}

			// Existing plain one, new buffered appointment.
			reverse := newMemStore()
			reverse.services = m.services
			reverse.book(domain.Appointment{ServiceID: plain.ID, StaffID: &x.ID, StartTime: tt.start, EndTime: tt.end})
			bs, be := buffered.Buffered(at(10, 0), at(11, 0))
			gotReverse, err := NewConflictDetector(reverse).HasConflict(context.Background(), ConflictQuery{
				BusinessID:    bizID,
				StaffID:       &x.ID,
				BufferedStart: bs,
				BufferedEnd:   be,
				Start:         at(10, 0),
				End:           at(11, 0),
			})
			if err != nil {
				t.Fatalf("HasConflict error: %v", err)
			}

			if gotForward != tt.want || gotReverse != tt.want {
				t.Fatalf("forward = %v, reverse = %v, want %v", gotForward, gotReverse, tt.want)
			}
		})
	}
}

func TestHasConflict_IgnoresInactiveAndExcluded(t *testing.T) {
	m := newMemStore()
	x := m.addStaff(activeStaff("x"))
	svc := m.addService(singleService(60))
	m.book(domain.Appointment{ServiceID: svc.ID, StaffID: &x.ID, StartTime: at(10, 0), EndTime: at(11, 0), Status: domain.AppointmentStatusCancelled})
	m.book(domain.Appointment{ServiceID: svc.ID, StaffID: &x.ID, StartTime: at(12, 0), EndTime: at(13, 0), Status: domain.AppointmentStatusCompleted})
	own := m.book(domain.Appointment{ServiceID: svc.ID, StaffID: &x.ID, StartTime: at(14, 0), EndTime: at(15, 0)})
	d := NewConflictDetector(m)

	for _, q := range []ConflictQuery{
		{BusinessID: bizID, StaffID: &x.ID, BufferedStart: at(10, 0), BufferedEnd: at(11, 0)},
		{BusinessID: bizID, StaffID: &x.ID, BufferedStart: at(12, 0), BufferedEnd: at(13, 0)},
		{BusinessID: bizID, StaffID: &x.ID, BufferedStart: at(14, 0), BufferedEnd: at(15, 0), ExcludeAppointmentID: &own.ID},
		{BusinessID: otherID, StaffID: &x.ID, BufferedStart: at(14, 0), BufferedEnd: at(15, 0)},
	} {
		got, err := d.HasConflict(context.Background(), q)
		if err != nil {
			t.Fatalf("HasConflict error: %v", err)
		}
		if got {
			t.Fatalf("unexpected conflict for %+v", q)
		}
	}

	got, err := d.HasConflict(context.Background(), ConflictQuery{BusinessID: bizID, StaffID: &x.ID, BufferedStart: at(14, 30), BufferedEnd: at(15, 30)})
	if err != nil {
		t.Fatalf("HasConflict error: %v", err)
	}
	if !got {
		t.Fatalf("expected conflict with confirmed appointment")
	}
}

func TestHasConflict_SharedSlotIgnoresSameService(t *testing.T) {
	m := newMemStore()
	x := m.addStaff(activeStaff("x"))
	group := m.addService(multiService(60, 5))
	other := m.addService(singleService(60))
	m.book(domain.Appointment{ServiceID: group.ID, StaffID: &x.ID, StartTime: at(10, 0), EndTime: at(11, 0)})
	d := NewConflictDetector(m)

	q := ConflictQuery{
		BusinessID:       bizID,
		StaffID:          &x.ID,
		BufferedStart:    at(10, 0),
		BufferedEnd:      at(11, 0),
		ServiceID:        &group.ID,
		AllowSharedSlots: true,
	}
	got, err := d.HasConflict(context.Background(), q)
	if err != nil {
		t.Fatalf("HasConflict error: %v", err)
	}
	if got {
		t.Fatalf("same shared service must not conflict")
	}

	q.ServiceID = &other.ID
	got, err = d.HasConflict(context.Background(), q)
	if err != nil {
		t.Fatalf("HasConflict error: %v", err)
	}
	if !got {
		t.Fatalf("different service must conflict")
	}
}
