package domain

import (
	"errors"
	"sort"
	"time"
)

type RecurrenceFrequency string

const (
	RecurrenceFrequencyWeekly RecurrenceFrequency = "weekly"
)

// RecurrenceRule describes a weekly class schedule. ByWeekday uses ISO
// numbering: 1 is Monday, 7 is Sunday.
type RecurrenceRule struct {
	Frequency RecurrenceFrequency
	Interval  int
	ByWeekday []int16
	Until     *time.Time
	Count     *int
	TimeZone  string
}

// Span is a concrete [Start, End) interval produced by a rule.
type Span struct {
	Start time.Time
	End   time.Time
}

// ExpandWeekly returns, in start order, the occurrences of rule anchored at
// dtstart that overlap [windowStart, windowEnd). The local wall-clock time of
// dtstart is kept across DST changes. Count is applied from dtstart, not from
// the window.
func ExpandWeekly(rule RecurrenceRule, dtstart time.Time, duration time.Duration, windowStart, windowEnd time.Time) ([]Span, error) {
	if rule.Frequency != RecurrenceFrequencyWeekly {
		return nil, errors.New("unsupported recurrence frequency")
	}
	if duration <= 0 {
		return nil, errors.New("invalid duration")
	}
	loc, err := time.LoadLocation(rule.TimeZone)
	if err != nil {
		return nil, errors.New("invalid time_zone")
	}
	weekdays, err := NormalizeWeekdays(rule.ByWeekday)
	if err != nil {
		return nil, err
	}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	anchor := dtstart.In(loc)
	firstStart := dtstart.UTC()
	firstMonday := mondayOf(anchor)

	at := func(monday time.Time, wd int16) time.Time {
		day := monday.AddDate(0, 0, mondayOffset(wd))
		return time.Date(day.Year(), day.Month(), day.Day(),
			anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), loc).UTC()
	}

	// Weekdays of the first week that fall before dtstart are not part of the
	// series and must not count towards rule.Count.
	skipped := 0
	for _, wd := range weekdays {
		if at(firstMonday, wd).Before(firstStart) {
			skipped++
		}
	}

	firstWeek := 0
	if windowMonday := mondayOf(windowStart.In(loc)); windowMonday.After(firstMonday) {
		days := int(windowMonday.Sub(firstMonday) / (24 * time.Hour))
		firstWeek = days / (7 * interval)
	}
	stopMonday := mondayOf(windowEnd.In(loc)).AddDate(0, 0, 7)

	limit := -1
	if rule.Count != nil {
		limit = *rule.Count
	}

	out := make([]Span, 0, 16)
	for week := firstWeek; ; week++ {
		monday := firstMonday.AddDate(0, 0, week*interval*7)
		if !monday.Before(stopMonday) {
			return out, nil
		}
		for i, wd := range weekdays {
			start := at(monday, wd)
			if start.Before(firstStart) {
				continue
			}
			if rule.Until != nil && start.After(rule.Until.UTC()) {
				return out, nil
			}
			if limit >= 0 && week*len(weekdays)+i-skipped >= limit {
				return out, nil
			}
			end := start.Add(duration)
			if start.Before(windowEnd) && end.After(windowStart) {
				out = append(out, Span{Start: start, End: end})
			}
		}
	}
}

// NormalizeWeekdays validates ISO weekdays, drops duplicates and sorts them.
func NormalizeWeekdays(in []int16) ([]int16, error) {
	seen := make(map[int16]struct{}, len(in))
	out := make([]int16, 0, len(in))
	for _, wd := range in {
		if wd < 1 || wd > 7 {
			return nil, errors.New("invalid weekday")
		}
		if _, ok := seen[wd]; ok {
			continue
		}
		seen[wd] = struct{}{}
		out = append(out, wd)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one weekday is required")
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ISOWeekday maps time.Weekday onto 1 (Monday) .. 7 (Sunday).
func ISOWeekday(wd time.Weekday) int16 {
	if wd == time.Sunday {
		return 7
	}
	return int16(wd)
}

func mondayOf(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d.AddDate(0, 0, -mondayOffset(ISOWeekday(t.Weekday())))
}

func mondayOffset(wd int16) int {
	return int(wd) - 1
}
