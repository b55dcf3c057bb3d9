package scheduler

import (
	"errors"
	"time"
)

// ErrDailyLimit indicates another reservation already starts during the
// same coworking day.
var ErrDailyLimit = errors.New("scheduler: coworking day already has a reservation")

// DailyRule allows at most one reservation to start during business hours on
// any weekday.
type DailyRule struct {
	Hours BusinessHours
}

// Applies reports whether a reservation starting at start is subject to the
// rule: a Monday to Friday start within business hours, both bounds inclusive.
func (d DailyRule) Applies(start time.Time) bool {
	switch start.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	opens, closes := d.bounds(start)
	return !start.Before(opens) && !start.After(closes)
}

// Check fails with ErrDailyLimit when existing holds a pending or approved
// reservation starting between the opening hour (inclusive) and the closing
// hour (exclusive) of start's day. The reservation being edited is not
// counted.
func (d DailyRule) Check(existing []Reservation, start time.Time, ec EvaluationContext) error {
	if ec.ActingAsPrivileged || !d.Applies(start) {
		return nil
	}
	opens, closes := d.bounds(start)
	found := 0
	for _, r := range existing {
		if r.Status != StatusPending && r.Status != StatusApproved {
			continue
		}
		if ec.Excludes(r.ID) {
			continue
		}
		s := r.Start.In(start.Location())
		if !s.Before(opens) && s.Before(closes) {
			found++
		}
	}
	if found >= 1 {
		return ErrDailyLimit
	}
	return nil
}

func (d DailyRule) bounds(start time.Time) (time.Time, time.Time) {
	y, m, day := start.Date()
	loc := start.Location()
	return time.Date(y, m, day, d.Hours.StartHour, 0, 0, 0, loc),
		time.Date(y, m, day, d.Hours.EndHour, 0, 0, 0, loc)
}
