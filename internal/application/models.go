package application

import (
	"time"

	"github.com/example/facility-booking/internal/scheduler"
)

// Principal represents the member invoking a service method.
type Principal struct {
	Email   string
	IsAdmin bool
}

// RecurrenceInput captures the caller supplied repetition settings.
type RecurrenceInput struct {
	Frequency    string
	Repetitions  int
	Ordinal      int
	Weekday      string
	WeekdaysOnly bool
}

// ReservationInput captures caller provided reservation fields. PartySize is
// kept as submitted so that non-numeric input can be reported.
type ReservationInput struct {
	Name            string
	Description     string
	PartySize       string
	Start           time.Time
	End             time.Time
	Rooms           []string
	SetupMinutes    int
	TeardownMinutes int
	ContactName     string
	ContactPhone    string
	SecondaryOwner  string
	Recurrence      *RecurrenceInput
	// EvaluateAsMember forces an administrator through the regular member
	// checks.
	EvaluateAsMember bool
}

// Reservation represents a persisted booking.
type Reservation struct {
	scheduler.Reservation
	Name                  string
	Description           string
	PartySize             int
	ContactName           string
	ContactPhone          string
	Staff                 []string
	OriginalStatus        scheduler.Status
	OwnerSuspendedAt      *time.Time
	ExpiresOn             *time.Time
	SeriesID              string
	RecurrenceDescription string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsStaffedBy reports whether email volunteered to staff the reservation.
func (r Reservation) IsStaffedBy(email string) bool {
	for _, s := range r.Staff {
		if s == email {
			return true
		}
	}
	return false
}

// AuditEntry records a state change applied to a reservation.
type AuditEntry struct {
	ID            string
	ReservationID string
	Actor         string
	Action        string
	FromStatus    scheduler.Status
	ToStatus      scheduler.Status
	Note          string
	CreatedAt     time.Time
}

// Policy bundles the rule set and the calendar settings around it.
type Policy struct {
	Rules               scheduler.Rules
	Location            *time.Location
	LeadDays            int
	SecondaryOwnerSpan  time.Duration
	ApprovalHorizon     time.Duration
	PendingLifetimeDays int
	ExpiryReminderDays  int
	SuspendedExpiry     time.Duration
	MinStaff            int
}

// DefaultPolicy returns the production policy evaluated in loc.
func DefaultPolicy(loc *time.Location) Policy {
	if loc == nil {
		loc = time.UTC
	}
	return Policy{
		Rules:               scheduler.DefaultRules(),
		Location:            loc,
		LeadDays:            2,
		SecondaryOwnerSpan:  24 * time.Hour,
		ApprovalHorizon:     5 * 7 * 24 * time.Hour,
		PendingLifetimeDays: 30,
		ExpiryReminderDays:  10,
		SuspendedExpiry:     30 * 24 * time.Hour,
	}
}

// Today returns local midnight of the day containing now.
func (p Policy) Today(now time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// ValidateParams wraps the data required to validate a proposal.
type ValidateParams struct {
	Principal Principal
	Input     ReservationInput
	// EditingID names the reservation being replaced, if any.
	EditingID string
	// Owner is the member the reservation belongs to. It defaults to the
	// principal for new reservations.
	Owner string
}

// Occurrence is one concrete slot of a validated proposal.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Validation is the outcome of a successful validation.
type Validation struct {
	Owner          string
	Occurrences    []Occurrence
	Description    string
	SecondaryOwner string
}

// CreateReservationParams wraps the data required to create reservations.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// UpdateReservationParams wraps the data required to edit a reservation.
type UpdateReservationParams struct {
	Principal     Principal
	ReservationID string
	Input         ReservationInput
}
