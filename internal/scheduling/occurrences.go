package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

const DefaultSeriesLookahead = 180 * 24 * time.Hour

type GenerateInput struct {
	BusinessID       uuid.UUID
	TemplateID       uuid.UUID
	Start            time.Time
	InstructorID     *uuid.UUID
	CapacityOverride *int
}

type SeriesInput struct {
	GenerateInput
	Rule domain.RecurrenceRule
}

// OccurrenceGenerator turns class templates into bookable occurrences.
type OccurrenceGenerator struct {
	classes   store.ClassRepository
	staff     store.StaffRepository
	lookahead time.Duration
}

func NewOccurrenceGenerator(classes store.ClassRepository, staff store.StaffRepository, lookahead time.Duration) *OccurrenceGenerator {
	if lookahead <= 0 {
		lookahead = DefaultSeriesLookahead
	}
	return &OccurrenceGenerator{classes: classes, staff: staff, lookahead: lookahead}
}

// Generate creates exactly one occurrence of the template starting at Start.
func (g *OccurrenceGenerator) Generate(ctx context.Context, in GenerateInput) (domain.ClassOccurrence, error) {
	proto, err := g.prototype(ctx, in)
	if err != nil {
		return domain.ClassOccurrence{}, err
	}
	created, err := g.classes.CreateOccurrences(ctx, []domain.ClassOccurrence{proto})
	if err != nil {
		return domain.ClassOccurrence{}, err
	}
	if len(created) != 1 {
		return domain.ClassOccurrence{}, errors.New("unexpected number of occurrences created")
	}
	return created[0], nil
}

// GenerateSeries expands a weekly rule anchored at Start into occurrences and
// stores them together. The rule needs Until or Count; expansion never goes
// past the configured lookahead.
func (g *OccurrenceGenerator) GenerateSeries(ctx context.Context, in SeriesInput) ([]domain.ClassOccurrence, error) {
	rule, err := normalizeRule(in.Rule, in.Start)
	if err != nil {
		return nil, err
	}
	proto, err := g.prototype(ctx, in.GenerateInput)
	if err != nil {
		return nil, err
	}
	duration := proto.EndTime.Sub(proto.StartTime)

	start := in.Start.UTC()
	horizon := start.Add(g.lookahead)
	if rule.Count == nil && rule.Until.After(horizon) {
		return nil, NewValidationError("until must be within the series lookahead of start_time")
	}
	if rule.Until != nil && rule.Until.Before(horizon) {
		horizon = *rule.Until
	}

	spans, err := domain.ExpandWeekly(rule, start, duration, start, horizon.Add(duration))
	if err != nil {
		return nil, NewValidationError(err.Error())
	}
	if len(spans) == 0 {
		return nil, NewValidationError("recurrence rule produces no occurrences")
	}
	if rule.Count != nil && *rule.Count > len(spans) {
		return nil, NewValidationError("count exceeds occurrences available within the series lookahead")
	}

	occs := make([]domain.ClassOccurrence, 0, len(spans))
	for _, s := range spans {
		o := proto
		o.StartTime = s.Start
		o.EndTime = s.End
		occs = append(occs, o)
	}
	return g.classes.CreateOccurrences(ctx, occs)
}

// prototype validates the input and returns an unsaved occurrence whose
// interval length equals the template duration.
func (g *OccurrenceGenerator) prototype(ctx context.Context, in GenerateInput) (domain.ClassOccurrence, error) {
	if in.BusinessID == uuid.Nil {
		return domain.ClassOccurrence{}, NewValidationError("business_id is required")
	}
	if in.TemplateID == uuid.Nil {
		return domain.ClassOccurrence{}, NewValidationError("template_id is required")
	}
	if in.Start.IsZero() {
		return domain.ClassOccurrence{}, NewValidationError("start_time is required")
	}

	tmpl, err := g.classes.GetTemplate(ctx, in.BusinessID, in.TemplateID)
	if err != nil {
		return domain.ClassOccurrence{}, err
	}
	if tmpl.DurationMinutes <= 0 {
		return domain.ClassOccurrence{}, NewValidationError("template duration must be positive")
	}

	capacity := tmpl.DefaultCapacity
	if in.CapacityOverride != nil {
		capacity = *in.CapacityOverride
	}
	if capacity < 1 {
		return domain.ClassOccurrence{}, NewValidationError("capacity must be at least 1")
	}

	instructor := tmpl.DefaultInstructorID
	if in.InstructorID != nil {
		staff, err := g.staff.GetStaff(ctx, in.BusinessID, *in.InstructorID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ClassOccurrence{}, NewValidationError("instructor not found")
		}
		if err != nil {
			return domain.ClassOccurrence{}, err
		}
		if !staff.IsActive {
			return domain.ClassOccurrence{}, NewValidationError("instructor is not active")
		}
		id := staff.ID
		instructor = &id
	}

	start := in.Start.UTC()
	return domain.ClassOccurrence{
		BusinessID:    in.BusinessID,
		TemplateID:    tmpl.ID,
		InstructorID:  instructor,
		StartTime:     start,
		EndTime:       start.Add(tmpl.Duration()),
		Capacity:      capacity,
		BookedCount:   0,
		WaitlistCount: 0,
		Status:        domain.OccurrenceStatusScheduled,
	}, nil
}

func normalizeRule(rule domain.RecurrenceRule, start time.Time) (domain.RecurrenceRule, error) {
	if rule.Frequency == "" {
		rule.Frequency = domain.RecurrenceFrequencyWeekly
	}
	if rule.Frequency != domain.RecurrenceFrequencyWeekly {
		return rule, NewValidationError("unsupported frequency")
	}

	rule.TimeZone = strings.TrimSpace(rule.TimeZone)
	if rule.TimeZone == "" {
		return rule, NewValidationError("time_zone is required")
	}
	loc, err := time.LoadLocation(rule.TimeZone)
	if err != nil {
		return rule, NewValidationError("invalid time_zone")
	}

	if rule.Interval == 0 {
		rule.Interval = 1
	}
	if rule.Interval < 1 {
		return rule, NewValidationError("interval must be at least 1")
	}

	if len(rule.ByWeekday) == 0 {
		rule.ByWeekday = []int16{domain.ISOWeekday(start.In(loc).Weekday())}
	}
	weekdays, err := domain.NormalizeWeekdays(rule.ByWeekday)
	if err != nil {
		return rule, NewValidationError(err.Error())
	}
	rule.ByWeekday = weekdays

	if rule.Until != nil {
		u := rule.Until.UTC()
		if u.Before(start.UTC()) {
			return rule, NewValidationError("until must be after start_time")
		}
		rule.Until = &u
	}
	if rule.Count != nil {
		c := *rule.Count
		if c < 1 {
			return rule, NewValidationError("count must be at least 1")
		}
		rule.Count = &c
	}
	if rule.Until == nil && rule.Count == nil {
		return rule, NewValidationError("until or count is required")
	}
	return rule, nil
}
