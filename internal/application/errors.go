package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidTransition is returned when an action is not allowed from the reservation's status.
	ErrInvalidTransition = errors.New("application: invalid status transition")
	// ErrUnknownAction is returned for action names outside the supported set.
	ErrUnknownAction = errors.New("application: unknown action")
)

// ValidationKind classifies a rejected proposal.
type ValidationKind string

const (
	KindMissingField        ValidationKind = "missing_field"
	KindInvalidPhone        ValidationKind = "invalid_phone"
	KindInvalidRecurrence   ValidationKind = "invalid_recurrence"
	KindLeadTime            ValidationKind = "lead_time"
	KindDailyCoworking      ValidationKind = "daily_coworking"
	KindRoomConflict        ValidationKind = "room_conflict"
	KindSharedSpaceConflict ValidationKind = "shared_space_conflict"
	KindFutureCap           ValidationKind = "future_cap"
	KindFourWeekCap         ValidationKind = "four_week_cap"
	KindSecondaryMember     ValidationKind = "secondary_member"
	KindApprovalHorizon     ValidationKind = "approval_horizon"
)

// ValidationError captures a user facing rejection. Message is the single
// reason shown to the member; FieldErrors optionally details offending fields.
type ValidationError struct {
	Kind        ValidationKind
	Message     string
	FieldErrors map[string]string
}

func newValidationError(kind ValidationKind, message string) *ValidationError {
	return &ValidationError{Kind: kind, Message: message}
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if v.Message != "" {
		return v.Message
	}
	return "validation failed"
}

// HasErrors reports whether any issue was recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && (v.Message != "" || len(v.FieldErrors) > 0)
}

// add records a field level validation error. The first message recorded
// becomes the headline message.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; !exists {
		v.FieldErrors[field] = message
	}
	if v.Message == "" {
		v.Message = message
	}
}
