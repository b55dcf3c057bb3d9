package access

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-booking/internal/scheduler"
)

var pacific = func() *time.Location {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return time.UTC
	}
	return loc
}()

func at(hour, minute int) time.Time {
	return time.Date(2024, time.March, 14, hour, minute, 0, 0, pacific)
}

func workshop() scheduler.Reservation {
	return scheduler.Reservation{
		ID:              "res-1",
		Owner:           "member@example.org",
		Start:           at(14, 0),
		End:             at(16, 0),
		Rooms:           []string{"Classroom"},
		SetupMinutes:    15,
		TeardownMinutes: 15,
		Status:          scheduler.StatusApproved,
		Secret:          "abc123",
	}
}

func TestResolveAuthorizesBeforeStartWithinSetup(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(0, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	now := at(13, 52)

	decision := resolver.Resolve(context.Background(), []scheduler.Reservation{workshop()}, now)
	require.True(t, decision.Authorized)
	assert.Equal(t, int64(at(16, 25).Sub(now)/time.Second), decision.RemainingSeconds)
	assert.True(t, decision.WindowStart.Equal(at(13, 35)))
	assert.True(t, decision.WindowEnd.Equal(at(16, 25)))
	assert.False(t, decision.LongSession)
}

func TestResolveWindowBoundaries(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(DefaultGrace, nil)
	matches := []scheduler.Reservation{workshop()}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "before window", now: at(13, 34), want: false},
		{name: "window start", now: at(13, 35), want: true},
		{name: "last minute", now: at(16, 24), want: true},
		{name: "window end", now: at(16, 25), want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, resolver.Resolve(context.Background(), matches, tc.now).Authorized)
		})
	}
}

func TestResolveIgnoresUnapprovedAndPicksFirstMatch(t *testing.T) {
	t.Parallel()

	pending := workshop()
	pending.ID = "pending"
	pending.Status = scheduler.StatusPending

	first := workshop()
	first.ID = "first"
	second := workshop()
	second.ID = "second"
	second.End = at(18, 0)

	decision := NewResolver(0, nil).Resolve(context.Background(), []scheduler.Reservation{pending, first, second}, at(15, 0))
	require.True(t, decision.Authorized)
	assert.Equal(t, "first", decision.Reservation.ID)

	decision = NewResolver(0, nil).Resolve(context.Background(), []scheduler.Reservation{pending}, at(15, 0))
	assert.False(t, decision.Authorized)
}

func TestResolveFlagsLongSessions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	long := workshop()
	long.End = at(23, 0)

	decision := NewResolver(0, slog.New(slog.NewTextHandler(&buf, nil))).Resolve(context.Background(), []scheduler.Reservation{long}, at(14, 0))
	require.True(t, decision.Authorized)
	assert.True(t, decision.LongSession)
	assert.Contains(t, buf.String(), "longer than six hours")
}

func TestDecisionWire(t *testing.T) {
	t.Parallel()

	decision := NewResolver(0, nil).Resolve(context.Background(), []scheduler.Reservation{workshop()}, at(15, 0))
	payload, err := json.Marshal(decision.Wire(pacific))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"valid": true,
		"event_start_time": "2024-03-14 14:00:00",
		"event_end_time": "2024-03-14 16:00:00",
		"session_start_time": "2024-03-14 13:35:00",
		"session_end_time": "2024-03-14 16:25:00",
		"duration_session": 5100
	}`, string(payload))

	payload, err = json.Marshal(Decision{}.Wire(pacific))
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid": false}`, string(payload))
}

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^[a-z0-9]{6}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		secret, err := GenerateSecret()
		require.NoError(t, err)
		assert.Regexp(t, pattern, secret)
		seen[secret] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}
