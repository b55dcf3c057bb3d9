package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrFutureCapExceeded indicates the member would hold too many future reservations.
	ErrFutureCapExceeded = errors.New("scheduler: future reservation cap exceeded")
	// ErrFourWeekCapExceeded indicates too many reservations inside one 28-day span.
	ErrFourWeekCapExceeded = errors.New("scheduler: four-week reservation cap exceeded")
)

// CheckFutureCap counts the member's active reservations starting after now,
// adds newCount proposed occurrences and, when editing, discounts the one
// being replaced. It fails when the total exceeds limit.
func CheckFutureCap(existing []Reservation, now time.Time, newCount, limit int, ec EvaluationContext) error {
	if ec.ActingAsPrivileged {
		return nil
	}
	count := 0
	for _, r := range existing {
		if r.Status.IsActive() && r.Start.After(now) {
			count++
		}
	}
	count += newCount
	if ec.Editing() {
		count--
	}
	if count > limit {
		return fmt.Errorf("%w: %d of %d", ErrFutureCapExceeded, count, limit)
	}
	return nil
}

// CheckFourWeekWindow verifies that no span of FourWeeks holds more than
// limit reservations once the proposed starts are added. Every proposed start
// is checked against the member's existing active reservations and the other
// proposed starts.
func CheckFourWeekWindow(existing []Reservation, proposed []time.Time, limit int, ec EvaluationContext) error {
	if ec.ActingAsPrivileged {
		return nil
	}
	for i, t := range proposed {
		if err := checkWindowAround(t, i, existing, proposed, limit, ec); err != nil {
			return err
		}
	}
	return nil
}

func checkWindowAround(t time.Time, self int, existing []Reservation, proposed []time.Time, limit int, ec EvaluationContext) error {
	earliest := t.Add(-FourWeeks)
	latest := t.Add(FourWeeks)
	inRange := func(s time.Time) bool {
		return !s.Before(earliest) && !s.After(latest)
	}

	var before, after []time.Time
	for _, r := range existing {
		if !r.Status.IsActive() || ec.Excludes(r.ID) || !inRange(r.Start) {
			continue
		}
		// Another stored reservation at the very same instant still counts.
		if r.Start.Before(t) {
			before = append(before, r.Start)
		} else {
			after = append(after, r.Start)
		}
	}
	for j, s := range proposed {
		if j == self || !inRange(s) {
			continue
		}
		switch {
		case s.Before(t):
			before = append(before, s)
		case s.After(t):
			after = append(after, s)
		}
	}

	if len(before)+len(after)+1 <= limit {
		return nil
	}
	if len(before) > limit || len(after) > limit {
		return fmt.Errorf("%w: %d in 4 weeks around %s", ErrFourWeekCapExceeded, limit, t.Format(time.RFC3339))
	}

	starts := make([]time.Time, 0, len(before)+len(after)+1)
	starts = append(starts, before...)
	starts = append(starts, t)
	starts = append(starts, after...)
	sort.Slice(starts, func(a, b int) bool { return starts[a].Before(starts[b]) })

	for lo := 0; lo+limit < len(starts); lo++ {
		if starts[lo+limit].Sub(starts[lo]) <= FourWeeks {
			return fmt.Errorf("%w: %d in 4 weeks around %s", ErrFourWeekCapExceeded, limit, t.Format(time.RFC3339))
		}
	}
	return nil
}
