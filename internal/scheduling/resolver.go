package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
	"github.com/bolttesting/Bookly-sub001/internal/store"
)

type StaffResolver struct {
	staff        store.StaffRepository
	availability *AvailabilityStore
	conflicts    *ConflictDetector
}

func NewStaffResolver(staff store.StaffRepository, availability *AvailabilityStore, conflicts *ConflictDetector) *StaffResolver {
	return &StaffResolver{staff: staff, availability: availability, conflicts: conflicts}
}

// Resolve picks the staff member for a booking of service over [start, end).
// A nil id with a nil error means the booking stays unassigned. Candidates
// are tried in assignment order and the first free one wins, so the same
// inputs always resolve to the same staff member.
func (r *StaffResolver) Resolve(ctx context.Context, service domain.Service, businessID uuid.UUID, start, end time.Time, preferredStaffID *uuid.UUID) (*uuid.UUID, error) {
	assignments, err := r.staff.ListServiceStaff(ctx, businessID, service.ID)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.StaffMember, 0, len(assignments))
	for _, a := range assignments {
		if a.Staff == nil || a.BusinessID != businessID || a.Staff.BusinessID != businessID || !a.Staff.IsActive {
			continue
		}
		if preferredStaffID != nil && a.StaffID != *preferredStaffID {
			continue
		}
		candidates = append(candidates, *a.Staff)
	}

	if preferredStaffID != nil && len(candidates) == 0 {
		return nil, ErrStaffNotEligible
	}
	if len(candidates) == 0 {
		if service.AllowAnyStaff {
			return nil, nil
		}
		return nil, ErrNoStaffAssigned
	}

	bufferedStart, bufferedEnd := service.Buffered(start, end)
	serviceID := service.ID
	for _, c := range candidates {
		ok, err := r.availability.Covers(ctx, c, start, end)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		staffID := c.ID
		conflict, err := r.conflicts.HasConflict(ctx, ConflictQuery{
			BusinessID:       businessID,
			StaffID:          &staffID,
			BufferedStart:    bufferedStart,
			BufferedEnd:      bufferedEnd,
			Start:            start,
			End:              end,
			ServiceID:        &serviceID,
			AllowSharedSlots: service.Shared(),
		})
		if err != nil {
			return nil, err
		}
		if !conflict {
			return &staffID, nil
		}
	}
	return nil, ErrNoStaffAvailable
}
