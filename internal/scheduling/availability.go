package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

// Window is a [Start, End) range in minutes since midnight.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Availability is the resolved set of windows for one staff member on one
// date. Unrestricted means nothing is configured for that day and any
// interval is accepted.
type Availability struct {
	Windows      []Window
	Unrestricted bool
}

// Covers reports whether [start, end) sits entirely inside a single window.
// Adjacent windows are not merged.
func (a Availability) Covers(start, end int) bool {
	if a.Unrestricted {
		return true
	}
	for _, w := range a.Windows {
		if start >= w.Start && end <= w.End {
			return true
		}
	}
	return false
}

type AvailabilityStore struct {
	blocks store.AvailabilityRepository
}

func NewAvailabilityStore(blocks store.AvailabilityRepository) *AvailabilityStore {
	return &AvailabilityStore{blocks: blocks}
}

// WindowsFor resolves a staff member's windows on a civil date. Any override
// block for the date replaces the weekly template for that whole day.
func (s *AvailabilityStore) WindowsFor(ctx context.Context, businessID, staffID uuid.UUID, onDate time.Time) (Availability, error) {
	day := civilDate(onDate)
	blocks, err := s.blocks.ListBlocksForDay(ctx, businessID, staffID, day)
	if err != nil {
		return Availability{}, err
	}
	return resolveWindows(blocks, day), nil
}

// Covers checks [start, end) against the staff member's windows in the staff
// member's own time zone. The interval is measured from the local start date,
// so one that runs past midnight only fits an unrestricted day.
func (s *AvailabilityStore) Covers(ctx context.Context, staff domain.StaffMember, start, end time.Time) (bool, error) {
	loc, err := staff.Location()
	if err != nil {
		return false, err
	}
	local := start.In(loc)
	avail, err := s.WindowsFor(ctx, staff.BusinessID, staff.ID, local)
	if err != nil {
		return false, err
	}
	startMin := local.Hour()*60 + local.Minute()
	length := end.Sub(start)
	endMin := startMin + int(length/time.Minute)
	if length%time.Minute != 0 {
		endMin++
	}
	return avail.Covers(startMin, endMin), nil
}

func resolveWindows(blocks []domain.AvailabilityBlock, day time.Time) Availability {
	weekday := int16(day.Weekday())

	var overrides, weekly []Window
	sawOverride, sawWeekly := false, false
	for _, b := range blocks {
		if b.IsOverride {
			if b.Date == nil || !civilDate(*b.Date).Equal(day) {
				continue
			}
			sawOverride = true
		} else {
			if b.DayOfWeek == nil || *b.DayOfWeek != weekday {
				continue
			}
			sawWeekly = true
		}
		// A malformed block still marks its day as configured, but adds no window.
		if err := b.Validate(); err != nil {
			continue
		}
		start, end, err := b.Minutes()
		if err != nil {
			continue
		}
		w := Window{Start: start, End: end}
		if b.IsOverride {
			overrides = append(overrides, w)
		} else {
			weekly = append(weekly, w)
		}
	}

	switch {
	case sawOverride:
		return Availability{Windows: normalizeWindows(overrides)}
	case sawWeekly:
		return Availability{Windows: normalizeWindows(weekly)}
	default:
		return Availability{
			Windows:      []Window{{Start: 0, End: domain.MinutesPerDay}},
			Unrestricted: true,
		}
	}
}

func normalizeWindows(in []Window) []Window {
	out := make([]Window, 0, len(in))
	sort.Slice(in, func(i, j int) bool {
		if in[i].Start != in[j].Start {
			return in[i].Start < in[j].Start
		}
		return in[i].End < in[j].End
	})
	for _, w := range in {
		if n := len(out); n > 0 && out[n-1] == w {
			continue
		}
		out = append(out, w)
	}
	return out
}

// civilDate drops the clock and zone, keeping the calendar date as seen in
// t's own location.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
