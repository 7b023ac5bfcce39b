package grpc

import (
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/scheduling"
)

// tenantScoped is implemented by every request; the rate limiter keys on it.
type tenantScoped interface {
	TenantKey() string
}

type ResolveBookingRequest struct {
	BusinessID       string    `json:"business_id"`
	ServiceID        string    `json:"service_id"`
	StartTime        time.Time `json:"start_time"`
	PreferredStaffID string    `json:"preferred_staff_id,omitempty"`
}

type ResolveBookingResponse struct {
	StaffID       string    `json:"staff_id,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	BufferedStart time.Time `json:"buffered_start"`
	BufferedEnd   time.Time `json:"buffered_end"`
}

type CheckCapacityRequest struct {
	BusinessID string    `json:"business_id"`
	ServiceID  string    `json:"service_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	// MaxClientsPerSlot falls back to the service's own setting when omitted.
	MaxClientsPerSlot    *int   `json:"max_clients_per_slot,omitempty"`
	ExcludeAppointmentID string `json:"exclude_appointment_id,omitempty"`
}

type CheckCapacityResponse struct{}

type AvailabilityWindowsRequest struct {
	BusinessID string `json:"business_id"`
	StaffID    string `json:"staff_id"`
	Date       string `json:"date"` // YYYY-MM-DD
}

type AvailabilityWindowsResponse struct {
	Windows []AvailabilityWindow `json:"windows"`
}

// AvailabilityWindow carries a window both as minutes since midnight and as
// HH:MM wall-clock strings.
type AvailabilityWindow struct {
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

type JoinWaitlistRequest struct {
	BusinessID   string `json:"business_id"`
	OccurrenceID string `json:"occurrence_id"`
	CustomerID   string `json:"customer_id"`
}

type PromoteWaitlistRequest struct {
	BusinessID   string `json:"business_id"`
	OccurrenceID string `json:"occurrence_id"`
}

type RemoveWaitlistEntryRequest struct {
	BusinessID string `json:"business_id"`
	EntryID    string `json:"entry_id"`
}

type WaitlistEntryResponse struct {
	Entry WaitlistEntry `json:"entry"`
}

type WaitlistEntry struct {
	ID           string     `json:"id"`
	OccurrenceID string     `json:"occurrence_id"`
	CustomerID   string     `json:"customer_id"`
	Position     int        `json:"position"`
	Status       string     `json:"status"`
	PromotedAt   *time.Time `json:"promoted_at,omitempty"`
	RemovedAt    *time.Time `json:"removed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type GenerateOccurrenceRequest struct {
	BusinessID       string    `json:"business_id"`
	TemplateID       string    `json:"template_id"`
	StartTime        time.Time `json:"start_time"`
	InstructorID     string    `json:"instructor_id,omitempty"`
	CapacityOverride *int      `json:"capacity_override,omitempty"`
}

type WeeklyRecurrence struct {
	Interval int        `json:"interval,omitempty"`
	Weekdays []int16    `json:"weekdays,omitempty"` // 1 Monday .. 7 Sunday
	Until    *time.Time `json:"until,omitempty"`
	Count    *int       `json:"count,omitempty"`
	TimeZone string     `json:"time_zone"`
}

type GenerateOccurrenceSeriesRequest struct {
	GenerateOccurrenceRequest
	Weekly *WeeklyRecurrence `json:"weekly"`
}

type OccurrenceSeatRequest struct {
	BusinessID   string `json:"business_id"`
	OccurrenceID string `json:"occurrence_id"`
}

type OccurrenceResponse struct {
	Occurrence Occurrence `json:"occurrence"`
}

type OccurrencesResponse struct {
	Occurrences []Occurrence `json:"occurrences"`
}

type Occurrence struct {
	ID            string    `json:"id"`
	TemplateID    string    `json:"template_id"`
	InstructorID  string    `json:"instructor_id,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Capacity      int       `json:"capacity"`
	BookedCount   int       `json:"booked_count"`
	WaitlistCount int       `json:"waitlist_count"`
	Status        string    `json:"status"`
}

type BookAppointmentRequest struct {
	BusinessID       string    `json:"business_id"`
	ServiceID        string    `json:"service_id"`
	CustomerID       string    `json:"customer_id"`
	StartTime        time.Time `json:"start_time"`
	PreferredStaffID string    `json:"preferred_staff_id,omitempty"`
}

type CancelAppointmentRequest struct {
	BusinessID    string `json:"business_id"`
	AppointmentID string `json:"appointment_id"`
}

type ListAppointmentsRequest struct {
	BusinessID  string    `json:"business_id"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

type AppointmentResponse struct {
	Appointment Appointment `json:"appointment"`
}

type ListAppointmentsResponse struct {
	Appointments []Appointment `json:"appointments"`
}

type Appointment struct {
	ID          string     `json:"id"`
	ServiceID   string     `json:"service_id"`
	StaffID     string     `json:"staff_id,omitempty"`
	CustomerID  string     `json:"customer_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Status      string     `json:"status"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r *ResolveBookingRequest) TenantKey() string { return r.BusinessID }
func (r *CheckCapacityRequest) TenantKey() string { return r.BusinessID }
func (r *AvailabilityWindowsRequest) TenantKey() string { return r.BusinessID }
func (r *JoinWaitlistRequest) TenantKey() string { return r.BusinessID }
func (r *PromoteWaitlistRequest) TenantKey() string { return r.BusinessID }
func (r *RemoveWaitlistEntryRequest) TenantKey() string { return r.BusinessID }
func (r *GenerateOccurrenceRequest) TenantKey() string { return r.BusinessID }
func (r *OccurrenceSeatRequest) TenantKey() string { return r.BusinessID }
func (r *BookAppointmentRequest) TenantKey() string { return r.BusinessID }
func (r *CancelAppointmentRequest) TenantKey() string { return r.BusinessID }
func (r *ListAppointmentsRequest) TenantKey() string { return r.BusinessID }

func toWireAppointment(a domain.Appointment) Appointment {
	return Appointment{
		ID:          a.ID.String(),
		ServiceID:   a.ServiceID.String(),
		StaffID:     optionalID(a.StaffID),
		CustomerID:  a.CustomerID.String(),
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Status:      string(a.Status),
		CancelledAt: a.CancelledAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toWireOccurrence(o domain.ClassOccurrence) Occurrence {
	return Occurrence{
		ID:            o.ID.String(),
		TemplateID:    o.TemplateID.String(),
		InstructorID:  optionalID(o.InstructorID),
		StartTime:     o.StartTime,
		EndTime:       o.EndTime,
		Capacity:      o.Capacity,
		BookedCount:   o.BookedCount,
		WaitlistCount: o.WaitlistCount,
		Status:        string(o.Status),
	}
}

func toWireWaitlistEntry(e domain.WaitlistEntry) WaitlistEntry {
	return WaitlistEntry{
		ID:           e.ID.String(),
		OccurrenceID: e.OccurrenceID.String(),
		CustomerID:   e.CustomerID.String(),
		Position:     e.Position,
		Status:       string(e.Status),
		PromotedAt:   e.PromotedAt,
		RemovedAt:    e.RemovedAt,
		CreatedAt:    e.CreatedAt,
	}
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func toWireWindows(in []scheduling.Window) []AvailabilityWindow {
	out := make([]AvailabilityWindow, 0, len(in))
	for _, w := range in {
		out = append(out, AvailabilityWindow{
			StartMinute: w.Start,
			EndMinute:   w.End,
			StartTime:   domain.FormatClock(w.Start),
			EndTime:     domain.FormatClock(w.End),
		})
	}
	return out
}
