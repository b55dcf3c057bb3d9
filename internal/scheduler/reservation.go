package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending      Status = "pending"
	StatusUnderstaffed Status = "understaffed"
	StatusApproved     Status = "approved"
	StatusNotApproved  Status = "not_approved"
	StatusCanceled     Status = "canceled"
	StatusOnHold       Status = "onhold"
	StatusExpired      Status = "expired"
	StatusDeleted      Status = "deleted"
)

var allStatuses = []Status{
	StatusPending,
	StatusUnderstaffed,
	StatusApproved,
	StatusNotApproved,
	StatusCanceled,
	StatusOnHold,
	StatusExpired,
	StatusDeleted,
}

// ActiveStatuses lists the statuses that count for conflicts and quotas.
func ActiveStatuses() []Status {
	return []Status{StatusApproved, StatusPending, StatusOnHold}
}

// ParseStatus converts a stored status label into a Status.
func ParseStatus(value string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", fmt.Errorf("scheduler: unknown status %q", value)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsActive reports whether s counts toward conflicts and quotas.
func (s Status) IsActive() bool {
	switch s {
	case StatusApproved, StatusPending, StatusOnHold:
		return true
	}
	return false
}

// Reservation is the engine's view of a booking.
type Reservation struct {
	ID              string
	Owner           string
	Start           time.Time
	End             time.Time
	Rooms           []string
	SetupMinutes    int
	TeardownMinutes int
	Status          Status
	SecondaryOwner  string
	Secret          string
}

// Duration returns the unpadded length of the reservation.
func (r Reservation) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// HasRoom reports whether the reservation books the named room.
func (r Reservation) HasRoom(room string) bool {
	for _, candidate := range r.Rooms {
		if candidate == room {
			return true
		}
	}
	return false
}

// NumDays returns the number of calendar days the reservation occupies in the
// start's location. A multi-day reservation that ends before 08:00 does not
// claim its final day.
func (r Reservation) NumDays() int {
	loc := r.Start.Location()
	end := r.End.In(loc)
	sy, sm, sd := r.Start.Date()
	ey, em, ed := end.Date()
	startDate := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	days := int(endDate.Sub(startDate).Hours()/24) + 1
	if days > 1 && end.Hour() < 8 {
		days--
	}
	return days
}

// EvaluationContext carries the per-call switches shared by every check.
// ActingAsPrivileged is true only when the actor is privileged and the caller
// did not force regular-member evaluation. ExcludeID names the reservation
// being edited, if any.
type EvaluationContext struct {
	ActingAsPrivileged bool
	ExcludeID          string
}

// Editing reports whether the evaluation replaces an existing reservation.
func (c EvaluationContext) Editing() bool {
	return c.ExcludeID != ""
}

// Excludes reports whether id is the reservation being edited.
func (c EvaluationContext) Excludes(id string) bool {
	return c.ExcludeID != "" && c.ExcludeID == id
}

// UniqueRooms collapses duplicate room names, keeping first-seen order.
func UniqueRooms(rooms []string) []string {
	if len(rooms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(rooms))
	out := make([]string, 0, len(rooms))
	for _, room := range rooms {
		room = strings.TrimSpace(room)
		if room == "" {
			continue
		}
		if _, ok := seen[room]; ok {
			continue
		}
		seen[room] = struct{}{}
		out = append(out, room)
	}
	return out
}
