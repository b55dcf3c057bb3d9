package persistence

import "time"

// Reservation is a single booked occurrence as stored.
type Reservation struct {
	ID                    string
	SeriesID              string
	Owner                 string
	SecondaryOwner        string
	Name                  string
	Description           string
	PartySize             int
	ContactName           string
	ContactPhone          string
	Start                 time.Time
	End                   time.Time
	Rooms                 []string
	Staff                 []string
	SetupMinutes          int
	TeardownMinutes       int
	Status                string
	OriginalStatus        string
	Secret                string
	OwnerSuspendedAt      *time.Time
	ExpiresOn             *time.Time
	RecurrenceDescription string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AuditEntry records one state change applied to a reservation.
type AuditEntry struct {
	ID            string
	ReservationID string
	Actor         string
	Action        string
	FromStatus    string
	ToStatus      string
	Note          string
	CreatedAt     time.Time
}
