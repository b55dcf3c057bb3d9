package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/facility-booking/internal/access"
	"github.com/example/facility-booking/internal/scheduler"
)

// AccessService checks event secrets presented by the network portal.
type AccessService struct {
	reservations ReservationRepository
	resolver     *access.Resolver
	now          func() time.Time
	logger       *slog.Logger
}

// NewAccessService wires dependencies for access checks.
func NewAccessService(reservations ReservationRepository, resolver *access.Resolver, now func() time.Time, logger *slog.Logger) *AccessService {
	if resolver == nil {
		resolver = access.NewResolver(access.DefaultGrace, logger)
	}
	if now == nil {
		now = time.Now
	}
	return &AccessService{
		reservations: reservations,
		resolver:     resolver,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// Check resolves secret against the approved reservations that carry it. An
// empty secret is rejected with ErrUnauthorized.
func (s *AccessService) Check(ctx context.Context, secret string) (access.Decision, error) {
	if s == nil || s.reservations == nil {
		return access.Decision{}, fmt.Errorf("AccessService is nil")
	}
	secret = strings.TrimSpace(secret)
	logger := serviceLogger(ctx, s.logger, "AccessService", "Check")
	if secret == "" {
		logger.WarnContext(ctx, "access refused, missing secret")
		return access.Decision{}, ErrUnauthorized
	}

	matches, err := s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		Statuses: []scheduler.Status{scheduler.StatusApproved},
		Secret:   secret,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to look up secret", "error", err)
		return access.Decision{}, err
	}

	decision := s.resolver.Resolve(ctx, toEngine(matches), s.now())
	if decision.Authorized {
		logger.InfoContext(ctx, "access granted",
			"reservation_id", decision.Reservation.ID,
			"remaining_seconds", decision.RemainingSeconds,
		)
	} else {
		logger.InfoContext(ctx, "access refused", "matches", len(matches))
	}
	return decision, nil
}
