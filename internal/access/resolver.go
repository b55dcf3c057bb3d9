// Package access decides whether a shared event secret currently unlocks
// network access.
package access

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/example/facility-booking/internal/logging"
	"github.com/example/facility-booking/internal/scheduler"
)

const (
	// DefaultGrace is added on both sides of the padded event interval.
	DefaultGrace = 10 * time.Minute
	// LongSessionSeconds flags suspiciously long sessions in the logs.
	LongSessionSeconds = 6 * 60 * 60

	wireTimeLayout = "2006-01-02 15:04:05"
	secretAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	secretLength   = 6
)

// Decision is the outcome of resolving a secret at a point in time.
type Decision struct {
	Authorized       bool
	RemainingSeconds int64
	WindowStart      time.Time
	WindowEnd        time.Time
	Reservation      *scheduler.Reservation
	LongSession      bool
}

// Response is the JSON shape returned to captive-portal integrations.
type Response struct {
	Valid            bool   `json:"valid"`
	EventStartTime   string `json:"event_start_time,omitempty"`
	EventEndTime     string `json:"event_end_time,omitempty"`
	SessionStartTime string `json:"session_start_time,omitempty"`
	SessionEndTime   string `json:"session_end_time,omitempty"`
	DurationSession  *int64 `json:"duration_session,omitempty"`
}

// Wire converts the decision into the portal wire format. Times are rendered
// in loc.
func (d Decision) Wire(loc *time.Location) Response {
	if !d.Authorized || d.Reservation == nil {
		return Response{Valid: false}
	}
	if loc == nil {
		loc = time.UTC
	}
	remaining := d.RemainingSeconds
	return Response{
		Valid:            true,
		EventStartTime:   d.Reservation.Start.In(loc).Format(wireTimeLayout),
		EventEndTime:     d.Reservation.End.In(loc).Format(wireTimeLayout),
		SessionStartTime: d.WindowStart.In(loc).Format(wireTimeLayout),
		SessionEndTime:   d.WindowEnd.In(loc).Format(wireTimeLayout),
		DurationSession:  &remaining,
	}
}

// Resolver evaluates access windows for reservations sharing a secret.
type Resolver struct {
	grace  time.Duration
	logger *slog.Logger
}

// NewResolver constructs a Resolver. A non-positive grace uses DefaultGrace.
func NewResolver(grace time.Duration, logger *slog.Logger) *Resolver {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Resolver{grace: grace, logger: logger}
}

// Window returns the access window of r: its padded interval widened by the
// resolver's grace on both ends.
func (r *Resolver) Window(res scheduler.Reservation) scheduler.Window {
	return scheduler.Window{
		Start: res.Start.Add(-r.grace - time.Duration(res.SetupMinutes)*time.Minute),
		End:   res.End.Add(r.grace + time.Duration(res.TeardownMinutes)*time.Minute),
	}
}

// Resolve inspects every approved match and authorizes the first one whose
// window contains now. Every match is logged for diagnostics.
func (r *Resolver) Resolve(ctx context.Context, matches []scheduler.Reservation, now time.Time) Decision {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = r.logger
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "access"))

	var decision Decision
	for i := range matches {
		match := matches[i]
		if match.Status != scheduler.StatusApproved {
			logger.DebugContext(ctx, "skipping match", slog.String("reservation_id", match.ID), slog.String("status", string(match.Status)))
			continue
		}
		window := r.Window(match)
		inside := window.Contains(now)
		logger.DebugContext(ctx, "evaluated match",
			slog.String("reservation_id", match.ID),
			slog.Time("window_start", window.Start),
			slog.Time("window_end", window.End),
			slog.Bool("inside", inside),
		)
		if !inside || decision.Authorized {
			continue
		}
		remaining := int64(window.End.Sub(now) / time.Second)
		decision = Decision{
			Authorized:       true,
			RemainingSeconds: remaining,
			WindowStart:      window.Start,
			WindowEnd:        window.End,
			Reservation:      &match,
			LongSession:      remaining >= LongSessionSeconds,
		}
		if decision.LongSession {
			logger.WarnContext(ctx, "access session is longer than six hours",
				slog.String("reservation_id", match.ID),
				slog.Int64("remaining_seconds", remaining),
			)
		}
	}
	return decision
}

// GenerateSecret returns a random lowercase alphanumeric event secret.
func GenerateSecret() (string, error) {
	limit := big.NewInt(int64(len(secretAlphabet)))
	buf := make([]byte, secretLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		buf[i] = secretAlphabet[n.Int64()]
	}
	return string(buf), nil
}
