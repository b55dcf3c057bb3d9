package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadUsesLargerOfOwnPaddingAndSpacing(t *testing.T) {
	t.Parallel()

	w := Pad(at(12, 10, 0), at(12, 12, 0), 15, 45, 30)
	assert.Equal(t, at(12, 9, 30), w.Start)
	assert.Equal(t, at(12, 12, 45), w.End)

	zero := Pad(at(12, 10, 0), at(12, 12, 0), 0, 0, 0)
	assert.Equal(t, 2*time.Hour, zero.Duration())
}

func TestWindowBoundariesAreHalfOpen(t *testing.T) {
	t.Parallel()

	w := Window{Start: at(12, 10, 0), End: at(12, 12, 0)}
	assert.True(t, w.Contains(at(12, 10, 0)))
	assert.False(t, w.Contains(at(12, 12, 0)))

	abutting := Window{Start: at(12, 12, 0), End: at(12, 13, 0)}
	assert.False(t, w.Overlaps(abutting))
	assert.False(t, abutting.Overlaps(w))
	assert.True(t, w.Overlaps(Window{Start: at(12, 11, 59), End: at(12, 13, 0)}))
}

func TestReservationNumDays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{name: "same day", start: at(12, 10, 0), end: at(12, 22, 0), want: 1},
		{name: "overnight ending early", start: at(12, 18, 0), end: at(13, 2, 0), want: 1},
		{name: "overnight past eight", start: at(12, 18, 0), end: at(13, 9, 0), want: 2},
		{name: "three days", start: at(12, 9, 0), end: at(14, 17, 0), want: 3},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := Reservation{Start: tc.start, End: tc.end}
			assert.Equal(t, tc.want, r.NumDays())
		})
	}
}

func TestStatusHelpers(t *testing.T) {
	t.Parallel()

	for _, s := range ActiveStatuses() {
		assert.True(t, s.IsActive(), s)
	}
	for _, s := range []Status{StatusNotApproved, StatusCanceled, StatusDeleted, StatusExpired, StatusUnderstaffed} {
		assert.False(t, s.IsActive(), s)
	}

	parsed, err := ParseStatus(" OnHold ")
	require.NoError(t, err)
	assert.Equal(t, StatusOnHold, parsed)

	_, err = ParseStatus("on_hold")
	assert.Error(t, err)
}

func TestUniqueRooms(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Deck", "Classroom"}, UniqueRooms([]string{"Deck", " Classroom", "Deck", ""}))
	assert.Nil(t, UniqueRooms(nil))
}

func TestRulesValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultRules().Validate())

	bad := DefaultRules()
	bad.BusinessHours = BusinessHours{StartHour: 17, EndHour: 9}
	assert.Error(t, bad.Validate())

	bad = DefaultRules()
	bad.FourWeekCap = 0
	assert.Error(t, bad.Validate())

	bad = DefaultRules()
	bad.MaxRepetitions = 0
	assert.Error(t, bad.Validate())
}
