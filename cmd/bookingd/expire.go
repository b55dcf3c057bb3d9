package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/metrics"
)

type sweeper interface {
	ExpireDue(ctx context.Context) (int, error)
	ExpireSuspended(ctx context.Context) (int, error)
	ExpiringSoon(ctx context.Context) ([]application.Reservation, error)
}

type sweepResult struct {
	Expired      int
	Suspended    int
	ExpiringSoon []application.Reservation
}

func newExpireCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Run the pending and suspended-owner expiry sweeps once",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(*envFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := rt.openStorage(ctx, false); err != nil {
				return err
			}
			defer rt.close()

			members, closeMembers := rt.membershipDirectory(ctx)
			defer closeMembers()

			result, err := runSweeps(ctx, rt.services(members).lifecycle, nil, rt.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d pending, %d suspended; %d expiring soon\n",
				result.Expired, result.Suspended, len(result.ExpiringSoon))
			return nil
		},
	}
}

// runSweeps expires due pending reservations and reservations of long
// suspended owners, then lists the reservations due for a reminder.
func runSweeps(ctx context.Context, s sweeper, m *metrics.Metrics, logger *slog.Logger) (sweepResult, error) {
	var result sweepResult

	expired, err := s.ExpireDue(ctx)
	if err != nil {
		return result, fmt.Errorf("expire due reservations: %w", err)
	}
	result.Expired = expired
	m.AddSwept("expire_due", expired)

	suspended, err := s.ExpireSuspended(ctx)
	if err != nil {
		return result, fmt.Errorf("expire suspended reservations: %w", err)
	}
	result.Suspended = suspended
	m.AddSwept("expire_suspended", suspended)

	soon, err := s.ExpiringSoon(ctx)
	if err != nil {
		return result, fmt.Errorf("list expiring reservations: %w", err)
	}
	result.ExpiringSoon = soon
	for _, r := range soon {
		logger.InfoContext(ctx, "reservation expiring soon",
			"reservation_id", r.ID,
			"owner", r.Owner,
			"name", r.Name,
		)
	}

	logger.InfoContext(ctx, "sweeps completed", "expired", expired, "suspended_expired", suspended, "expiring_soon", len(soon))
	return result, nil
}

func runSweepLoop(ctx context.Context, interval time.Duration, s sweeper, m *metrics.Metrics, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := runSweeps(ctx, s, m, logger); err != nil {
				logger.ErrorContext(ctx, "sweep failed", "error", err)
			}
		}
	}
}
