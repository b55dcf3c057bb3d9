package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var pacific = mustLoadLocation("America/Los_Angeles")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Frequency represents supported recurrence intervals.
type Frequency string

const (
	// FrequencyMonthly repeats on an ordinal weekday of each following month.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyWeekly repeats every seven days.
	FrequencyWeekly Frequency = "weekly"
	// FrequencyDaily repeats every day, optionally skipping weekends.
	FrequencyDaily Frequency = "daily"
)

// Descriptor describes how a proposed reservation repeats.
type Descriptor struct {
	Frequency    Frequency
	Repetitions  int
	Ordinal      int
	Weekday      time.Weekday
	WeekdaysOnly bool
}

// Occurrence represents one concrete instance of a reservation.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// NoRepeatDescription describes a reservation that does not recur.
const NoRepeatDescription = "Never."

var (
	// ErrUnknownFrequency indicates a frequency outside the supported set. It
	// signals a caller bug rather than bad user input.
	ErrUnknownFrequency = errors.New("recurrence: unknown frequency")
	// ErrInvalidRepetitions indicates a repetition count below one.
	ErrInvalidRepetitions = errors.New("recurrence: repetitions must be at least 1")
	// ErrInvalidOrdinal indicates a monthly week ordinal outside 1..5.
	ErrInvalidOrdinal = errors.New("recurrence: week ordinal must be between 1 and 5")
	// ErrInvalidDuration indicates the base reservation does not end after it starts.
	ErrInvalidDuration = errors.New("recurrence: reservation duration must be positive")
	// ErrUnknownWeekday indicates a weekday name that could not be parsed.
	ErrUnknownWeekday = errors.New("recurrence: unknown weekday")
)

// ParseWeekday converts an English weekday name into a time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWeekday, name)
}

// Expander turns a reservation and a descriptor into concrete occurrences.
type Expander struct {
	location *time.Location
}

// NewExpander constructs an Expander that evaluates calendar arithmetic in loc.
// If loc is nil, America/Los_Angeles is used.
func NewExpander(loc *time.Location) *Expander {
	if loc == nil {
		loc = pacific
	}
	return &Expander{location: loc}
}

// Expand returns the ordered occurrences for a reservation spanning
// [start, end) and a human readable description of the repetition. A nil
// descriptor yields the single base occurrence.
//
// Calendar arithmetic preserves local wall-clock time across DST changes:
//   - weekly: each start is seven calendar days after the previous one.
//   - daily: each start is the next calendar day, skipping Saturday and
//     Sunday when WeekdaysOnly is set.
//   - monthly: the next month is entered on day max(7*(ordinal-1), 1) and
//     the start moves to the first matching weekday strictly after it.
func (e *Expander) Expand(start, end time.Time, d *Descriptor) ([]Occurrence, string, error) {
	loc := e.location
	if loc == nil {
		loc = pacific
	}
	if !end.After(start) {
		return nil, "", ErrInvalidDuration
	}
	start = start.In(loc)
	end = end.In(loc)
	length := end.Sub(start)

	if d == nil {
		return []Occurrence{{Start: start, End: end}}, NoRepeatDescription, nil
	}
	if err := d.validate(); err != nil {
		return nil, "", err
	}

	occurrences := make([]Occurrence, 0, d.Repetitions)
	occurrences = append(occurrences, Occurrence{Start: start, End: end})
	current := start
	for i := 1; i < d.Repetitions; i++ {
		current = d.next(current)
		occurrences = append(occurrences, Occurrence{Start: current, End: current.Add(length)})
	}
	return occurrences, fmt.Sprintf("%d repetitions %s.", d.Repetitions, d.Frequency), nil
}

func (d Descriptor) validate() error {
	switch d.Frequency {
	case FrequencyMonthly:
		if d.Ordinal < 1 || d.Ordinal > 5 {
			return ErrInvalidOrdinal
		}
	case FrequencyWeekly, FrequencyDaily:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrequency, string(d.Frequency))
	}
	if d.Repetitions < 1 {
		return ErrInvalidRepetitions
	}
	return nil
}

func (d Descriptor) next(current time.Time) time.Time {
	switch d.Frequency {
	case FrequencyWeekly:
		return current.AddDate(0, 0, 7)
	case FrequencyDaily:
		next := current.AddDate(0, 0, 1)
		if d.WeekdaysOnly {
			for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
				next = next.AddDate(0, 0, 1)
			}
		}
		return next
	default:
		return nextMonthly(current, d.Ordinal, d.Weekday)
	}
}

func nextMonthly(current time.Time, ordinal int, weekday time.Weekday) time.Time {
	year, month, _ := current.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	anchor := time.Date(year, month, max(7*(ordinal-1), 1),
		current.Hour(), current.Minute(), current.Second(), current.Nanosecond(), current.Location())

	ahead := int(weekday) - int(anchor.Weekday())
	if ahead <= 0 {
		ahead += 7
	}
	return anchor.AddDate(0, 0, ahead)
}
