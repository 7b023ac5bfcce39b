package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const MinutesPerDay = 24 * 60

type StaffMember struct {
	bun.BaseModel `bun:"table:staff_members,alias:sm"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	BusinessID uuid.UUID `bun:"business_id,notnull,type:uuid"`
	Name       string    `bun:"name,notnull"`
	Timezone   string    `bun:"timezone,notnull"`
	IsActive   bool      `bun:"is_active,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

// Location is the zone the staff member's working hours are written in.
// An empty zone means UTC.
func (m StaffMember) Location() (*time.Location, error) {
	tz := strings.TrimSpace(m.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.New("invalid time_zone")
	}
	return loc, nil
}

// AvailabilityBlock is either a weekly template entry (DayOfWeek set, 0 is
// Sunday) or a date override (Date set). Never both.
type AvailabilityBlock struct {
	bun.BaseModel `bun:"table:availability_blocks,alias:ab"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid"`
	BusinessID uuid.UUID  `bun:"business_id,notnull,type:uuid"`
	StaffID    uuid.UUID  `bun:"staff_id,notnull,type:uuid"`
	IsOverride bool       `bun:"is_override,notnull"`
	DayOfWeek  *int16     `bun:"day_of_week"`
	Date       *time.Time `bun:"date,type:date"`
	StartTime  string     `bun:"start_time,notnull"`
	EndTime    string     `bun:"end_time,notnull"`
	CreatedAt  time.Time  `bun:"created_at,notnull"`
	UpdatedAt  time.Time  `bun:"updated_at,notnull"`
}

func (b AvailabilityBlock) Validate() error {
	if b.IsOverride {
		if b.Date == nil {
			return errors.New("override blocks require a date")
		}
		if b.DayOfWeek != nil {
			return errors.New("override blocks must not carry a day of week")
		}
	} else {
		if b.DayOfWeek == nil {
			return errors.New("weekly blocks require a day of week")
		}
		if *b.DayOfWeek < 0 || *b.DayOfWeek > 6 {
			return errors.New("day of week must be between 0 and 6")
		}
		if b.Date != nil {
			return errors.New("weekly blocks must not carry a date")
		}
	}
	_, _, err := b.Minutes()
	return err
}

// Minutes returns the block as minutes since midnight.
func (b AvailabilityBlock) Minutes() (int, int, error) {
	start, err := ParseClock(b.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("start_time: %w", err)
	}
	end, err := ParseClock(b.EndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("end_time: %w", err)
	}
	if end <= start {
		return 0, 0, errors.New("end_time must be after start_time")
	}
	return start, end, nil
}

// ParseClock parses HH:MM (or HH:MM:SS, seconds ignored) into minutes since
// midnight. 24:00 is accepted as the end of the day.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, errors.New("time must be HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 2 {
		return 0, errors.New("time must be HH:MM")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || m < 0 || m > 59 {
		return 0, errors.New("time must be HH:MM")
	}
	if h == 24 && m == 0 {
		return MinutesPerDay, nil
	}
	if h < 0 || h > 23 {
		return 0, errors.New("time must be HH:MM")
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
