package scheduler

import "time"

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Pad widens [start, end) by the larger of the reservation's own setup or
// teardown and the global minimum spacing.
func Pad(start, end time.Time, setupMinutes, teardownMinutes, minSpacingMinutes int) Window {
	return Window{
		Start: start.Add(-minutes(max(setupMinutes, minSpacingMinutes))),
		End:   end.Add(minutes(max(teardownMinutes, minSpacingMinutes))),
	}
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Overlaps reports whether the two windows share any instant. Touching
// boundaries do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
