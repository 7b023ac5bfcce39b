package scheduling

import "errors"

// Decision errors. None of them is retried here; callers pick their own
// retry or alternative-slot policy.
var (
	ErrStaffNotEligible             = errors.New("requested staff member is not assigned to this service")
	ErrNoStaffAssigned              = errors.New("service has no assigned staff")
	ErrNoStaffAvailable             = errors.New("no staff member is available at the requested time")
	ErrSeatsExhausted               = errors.New("no seats left at the requested time")
	ErrAppointmentConflict          = errors.New("staff member already has an appointment at the requested time")
	ErrClassStillFull               = errors.New("class occurrence has no free seats")
	ErrNoWaitlistEntries            = errors.New("no pending waitlist entries")
	ErrInvalidCapacityConfiguration = errors.New("max clients per slot must be positive")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func NewValidationError(msg string) error {
	return &ValidationError{msg: msg}
}
