package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyRule(t *testing.T) {
	t.Parallel()

	rule := DailyRule{Hours: DefaultRules().BusinessHours}
	// 2024-03-12 is a Tuesday; 2024-03-16 is a Saturday.
	first := Reservation{ID: "first", Start: at(12, 10, 0), End: at(12, 11, 0), Status: StatusPending}
	weekendFirst := Reservation{ID: "weekend", Start: at(16, 10, 0), End: at(16, 11, 0), Status: StatusApproved}

	t.Run("second weekday proposal fails", func(t *testing.T) {
		t.Parallel()
		err := rule.Check([]Reservation{first}, at(12, 14, 0), EvaluationContext{})
		require.ErrorIs(t, err, ErrDailyLimit)
	})

	t.Run("weekend proposals are exempt", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, rule.Check([]Reservation{weekendFirst}, at(16, 14, 0), EvaluationContext{}))
	})

	t.Run("closing hour is inclusive for the proposal", func(t *testing.T) {
		t.Parallel()
		require.ErrorIs(t, rule.Check([]Reservation{first}, at(12, 17, 0), EvaluationContext{}), ErrDailyLimit)
		require.NoError(t, rule.Check([]Reservation{first}, at(12, 17, 1), EvaluationContext{}))
		require.NoError(t, rule.Check([]Reservation{first}, at(12, 8, 59), EvaluationContext{}))
	})

	t.Run("existing reservation at closing hour is not counted", func(t *testing.T) {
		t.Parallel()
		late := Reservation{ID: "late", Start: at(12, 17, 0), End: at(12, 18, 0), Status: StatusApproved}
		require.NoError(t, rule.Check([]Reservation{late}, at(12, 9, 0), EvaluationContext{}))
	})

	t.Run("onhold and canceled reservations do not count", func(t *testing.T) {
		t.Parallel()
		onhold := first
		onhold.Status = StatusOnHold
		canceled := first
		canceled.ID = "canceled"
		canceled.Status = StatusCanceled
		require.NoError(t, rule.Check([]Reservation{onhold, canceled}, at(12, 14, 0), EvaluationContext{}))
	})

	t.Run("edited reservation is excluded", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, rule.Check([]Reservation{first}, at(12, 11, 0), EvaluationContext{ExcludeID: "first"}))
	})

	t.Run("privileged actor bypasses", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, rule.Check([]Reservation{first}, at(12, 14, 0), EvaluationContext{ActingAsPrivileged: true}))
	})

	t.Run("applies only to weekday business hours", func(t *testing.T) {
		t.Parallel()
		assert.True(t, rule.Applies(at(11, 9, 0)))
		assert.False(t, rule.Applies(at(17, 12, 0)))
		assert.False(t, rule.Applies(at(11, 18, 0)))
	})
}
