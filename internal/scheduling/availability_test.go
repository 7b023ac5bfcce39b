package scheduling

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
)

func TestWindowsFor_OverrideReplacesWeeklyTemplate(t *testing.T) {
	m := newMemStore()
	x := m.addStaff(activeStaff("x"))
	monday := at(0, 0)
	m.blocks = []domain.AvailabilityBlock{
		weekly(x.ID, 1, "09:00", "17:00"),
		override(x.ID, monday, "14:00", "16:00"),
		override(x.ID, monday, "12:00", "13:00"),
	}

	got, err := NewAvailabilityStore(m).WindowsFor(context.Background(), bizID, x.ID, monday)
	if err != nil {
		t.Fatalf("WindowsFor error: %v", err)
	}
	want := []Window{{Start: 720, End: 780}, {Start: 840, End: 960}}
	if got.Unrestricted {
		t.Fatalf("expected restricted day")
	}
	if !reflect.DeepEqual(got.Windows, want) {
		t.Fatalf("windows = %v, want %v", got.Windows, want)
	}

	// The following Monday has no override and falls back to the template.
	got, err = NewAvailabilityStore(m).WindowsFor(context.Background(), bizID, x.ID, monday.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("WindowsFor error: %v", err)
	}
	if !reflect.DeepEqual(got.Windows, []Window{{Start: 540, End: 1020}}) {
		t.Fatalf("windows = %v, want weekly template", got.Windows)
	}
}

func TestWindowsFor_InvalidOverrideClosesTheDay(t *testing.T) {
	m := newMemStore()
	x := m.addStaff(activeStaff("x"))
	monday := at(0, 0)
	m.blocks = []domain.AvailabilityBlock{
		weekly(x.ID, 1, "09:00", "17:00"),
		override(x.ID, monday, "12:00", "11:00"),
	}

	got, err := NewAvailabilityStore(m).WindowsFor(context.Background(), bizID, x.ID, monday)
	if err != nil {
		t.Fatalf("WindowsFor error: %v", err)
	}
	if got.Unrestricted || len(got.Windows) != 0 {
		t.Fatalf("got %+v, want closed day", got)
	}
	if got.Covers(600, 660) {
		t.Fatalf("closed day must not cover anything")
	}
}

func TestWindowsFor_IgnoresBlocksMixingWeeklyAndOverrideFields(t *testing.T) {
	m := newMemStore()
	x := m.addStaff(activeStaff("x"))
	monday := at(0, 0)

	mixedOverride := override(x.ID, monday, "08:00", "20:00")
	mixedOverride.DayOfWeek = ptr(int16(1))
	m.blocks = []domain.AvailabilityBlock{weekly(x.ID, 1, "09:00", "17:00"), mixedOverride}

	got, err := NewAvailabilityStore(m).WindowsFor(context.Background(), bizID, x.ID, monday)
	if err != nil {
		t.Fatalf("WindowsFor error: %v", err)
	}
	if got.Unrestricted || len(got.Windows) != 0 {
		t.Fatalf("got %+v, want closed day", got)
	}

	dated := weekly(x.ID, 1, "06:00", "08:00")
	dated.Date = &monday
	m.blocks = []domain.AvailabilityBlock{weekly(x.ID, 1, "09:00", "17:00"), dated}

	got, err = NewAvailabilityStore(m).WindowsFor(context.Background(), bizID, x.ID, monday)
	if err != nil {
		t.Fatalf("WindowsFor error: %v", err)
	}
	want := []Window{{Start: 540, End: 1020}}
	if len(got.Windows) != 1 || got.Windows[0] != want[0] {
		t.Fatalf("windows = %+v, want %+v", got.Windows, want)
	}
}

func TestWindowsFor_NothingConfiguredIsUnrestricted(t *testing.T) {
	m := newMemStore()
	x := m.addStaff(activeStaff("x"))
	// A Tuesday block does not restrict Monday.
	m.blocks = []domain.AvailabilityBlock{weekly(x.ID, 2, "09:00", "10:00")}

	got, err := NewAvailabilityStore(m).WindowsFor(context.Background(), bizID, x.ID, at(0, 0))
	if err != nil {
		t.Fatalf("WindowsFor error: %v", err)
	}
	if !got.Unrestricted {
		t.Fatalf("expected unrestricted day")
	}
	if !reflect.DeepEqual(got.Windows, []Window{{Start: 0, End: domain.MinutesPerDay}}) {
		t.Fatalf("windows = %v", got.Windows)
	}
}

func TestAvailability_CoversNeedsSingleWindow(t *testing.T) {
	a := Availability{Windows: []Window{{Start: 540, End: 720}, {Start: 720, End: 900}}}

	tests := []struct {
		name       string
		start, end int
		want       bool
	}{
		{"inside first", 540, 600, true},
		{"ends at window end", 660, 720, true},
		{"inside second", 720, 900, true},
		{"spans adjacent windows", 690, 750, false},
		{"starts before", 530, 600, false},
		{"ends after", 850, 910, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Covers(tt.start, tt.end); got != tt.want {
				t.Fatalf("Covers(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestAvailabilityStore_CoversUsesStaffTimeZone(t *testing.T) {
	m := newMemStore()
	x := activeStaff("x")
	x.Timezone = "America/New_York"
	m.addStaff(x)
	m.blocks = []domain.AvailabilityBlock{weekly(x.ID, 1, "09:00", "17:00")}
	s := NewAvailabilityStore(m)

	// 14:00 UTC on 2026-01-05 is 09:00 in New York.
	ok, err := s.Covers(context.Background(), x, at(14, 0), at(15, 0))
	if err != nil {
		t.Fatalf("Covers error: %v", err)
	}
	if !ok {
		t.Fatalf("expected 09:00-10:00 local to be covered")
	}

	ok, err = s.Covers(context.Background(), x, at(13, 0), at(14, 0))
	if err != nil {
		t.Fatalf("Covers error: %v", err)
	}
	if ok {
		t.Fatalf("expected 08:00-09:00 local to be rejected")
	}
}

func TestAvailabilityStore_CoversRoundsPartialMinutesUp(t *testing.T) {
	m := newMemStore()
	x := m.addStaff(activeStaff("x"))
	m.blocks = []domain.AvailabilityBlock{weekly(x.ID, 1, "09:00", "10:00")}

	ok, err := NewAvailabilityStore(m).Covers(context.Background(), x, at(9, 0), at(10, 0).Add(30*time.Second))
	if err != nil {
		t.Fatalf("Covers error: %v", err)
	}
	if ok {
		t.Fatalf("interval ending past the window must not be covered")
	}
}

func TestAvailabilityStore_InvalidTimeZone(t *testing.T) {
	m := newMemStore()
	x := activeStaff("x")
	x.Timezone = "Nowhere/Special"

	if _, err := NewAvailabilityStore(m).Covers(context.Background(), x, at(9, 0), at(10, 0)); err == nil {
		t.Fatalf("expected time zone error")
	}
}
