package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

var (
	bizID   = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	otherID = uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
)

func ptr[T any](v T) *T { return &v }

func at(hour, minute int) time.Time {
	// 2026-01-05 is a Monday.
	return time.Date(2026, 1, 5, hour, minute, 0, 0, time.UTC)
}

// memStore is an in-memory stand-in for every read-side repository the
// engine uses. Its overlap predicate mirrors the SQL one.
type memStore struct {
	services    map[uuid.UUID]domain.Service
	staff       map[uuid.UUID]domain.StaffMember
	assignments map[uuid.UUID][]domain.ServiceStaff
	blocks      []domain.AvailabilityBlock
	appts       []domain.Appointment
}

func newMemStore() *memStore {
	return &memStore{
		services:    map[uuid.UUID]domain.Service{},
		staff:       map[uuid.UUID]domain.StaffMember{},
		assignments: map[uuid.UUID][]domain.ServiceStaff{},
	}
}

func (m *memStore) addService(s domain.Service) domain.Service {
	m.services[s.ID] = s
	return s
}

func (m *memStore) addStaff(s domain.StaffMember) domain.StaffMember {
	m.staff[s.ID] = s
	return s
}

func (m *memStore) assign(serviceID uuid.UUID, staffIDs ...uuid.UUID) {
	for i, id := range staffIDs {
		m.assignments[serviceID] = append(m.assignments[serviceID], domain.ServiceStaff{
			BusinessID: m.staff[id].BusinessID,
			ServiceID:  serviceID,
			StaffID:    id,
			SortOrder:  i,
			IsPrimary:  i == 0,
		})
	}
}

func (m *memStore) book(a domain.Appointment) domain.Appointment {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.BusinessID == uuid.Nil {
		a.BusinessID = bizID
	}
	if a.Status == "" {
		a.Status = domain.AppointmentStatusConfirmed
	}
	m.appts = append(m.appts, a)
	return a
}

func (m *memStore) setStatus(id uuid.UUID, status domain.AppointmentStatus) {
	for i := range m.appts {
		if m.appts[i].ID == id {
			m.appts[i].Status = status
		}
	}
}

func (m *memStore) GetService(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Service, error) {
	s, ok := m.services[serviceID]
	if !ok || s.BusinessID != businessID {
		return domain.Service{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memStore) GetStaff(ctx context.Context, businessID, staffID uuid.UUID) (domain.StaffMember, error) {
	s, ok := m.staff[staffID]
	if !ok || s.BusinessID != businessID {
		return domain.StaffMember{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memStore) ListServiceStaff(ctx context.Context, businessID, serviceID uuid.UUID) ([]domain.ServiceStaff, error) {
	var out []domain.ServiceStaff
	for _, a := range m.assignments[serviceID] {
		if a.BusinessID != businessID {
			continue
		}
		if s, ok := m.staff[a.StaffID]; ok {
			a.Staff = &s
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].SortOrder < out[j].SortOrder
	})
	return out, nil
}

func (m *memStore) ListBlocksForDay(ctx context.Context, businessID, staffID uuid.UUID, onDate time.Time) ([]domain.AvailabilityBlock, error) {
	var out []domain.AvailabilityBlock
	for _, b := range m.blocks {
		if b.BusinessID != businessID || b.StaffID != staffID {
			continue
		}
		if b.IsOverride && b.Date != nil && b.Date.Format("2006-01-02") == onDate.Format("2006-01-02") {
			out = append(out, b)
		}
		if !b.IsOverride && b.DayOfWeek != nil && *b.DayOfWeek == int16(onDate.Weekday()) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) AnyOverlapping(ctx context.Context, f store.AppointmentFilter) (bool, error) {
	n, err := m.CountOverlapping(ctx, f)
	return n > 0, err
}

func (m *memStore) CountOverlapping(ctx context.Context, f store.AppointmentFilter) (int, error) {
	n := 0
	for _, a := range m.appts {
		if m.matches(f, a) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) matches(f store.AppointmentFilter, a domain.Appointment) bool {
	if a.BusinessID != f.BusinessID || !a.Status.Active() {
		return false
	}
	if f.StaffID != nil && (a.StaffID == nil || *a.StaffID != *f.StaffID) {
		return false
	}
	if f.ServiceID != nil && a.ServiceID != *f.ServiceID {
		return false
	}
	if f.ExcludeServiceID != nil && a.ServiceID == *f.ExcludeServiceID {
		return false
	}
	if f.ExcludeAppointmentID != nil && a.ID == *f.ExcludeAppointmentID {
		return false
	}
	if a.StartTime.Before(f.End) && a.EndTime.After(f.Start) {
		return true
	}
	if f.Raw != nil {
		bs, be := m.services[a.ServiceID].Buffered(a.StartTime, a.EndTime)
		return bs.Before(f.Raw.End) && be.After(f.Raw.Start)
	}
	return false
}

func (m *memStore) engine() *Engine {
	return NewEngine(Repositories{
		Services:     m,
		Staff:        m,
		Availability: m,
		Appointments: m,
	})
}

func weekly(staffID uuid.UUID, day int16, start, end string) domain.AvailabilityBlock {
	return domain.AvailabilityBlock{
		ID:         uuid.New(),
		BusinessID: bizID,
		StaffID:    staffID,
		DayOfWeek:  ptr(day),
		StartTime:  start,
		EndTime:    end,
	}
}

func override(staffID uuid.UUID, date time.Time, start, end string) domain.AvailabilityBlock {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return domain.AvailabilityBlock{
		ID:         uuid.New(),
		BusinessID: bizID,
		StaffID:    staffID,
		IsOverride: true,
		Date:       &d,
		StartTime:  start,
		EndTime:    end,
	}
}

func activeStaff(name string) domain.StaffMember {
	return domain.StaffMember{
		ID:         uuid.New(),
		BusinessID: bizID,
		Name:       name,
		Timezone:   "UTC",
		IsActive:   true,
	}
}

func singleService(duration int) domain.Service {
	return domain.Service{
		ID:                uuid.New(),
		BusinessID:        bizID,
		Name:              "haircut",
		DurationMinutes:   duration,
		CapacityType:      domain.CapacityTypeSingle,
		MaxClientsPerSlot: 1,
	}
}

func multiService(duration, seats int) domain.Service {
	return domain.Service{
		ID:                uuid.New(),
		BusinessID:        bizID,
		Name:              "group session",
		DurationMinutes:   duration,
		CapacityType:      domain.CapacityTypeMulti,
		MaxClientsPerSlot: seats,
	}
}
