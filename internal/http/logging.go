package http

import (
	"context"
	"log/slog"

	"github.com/example/facility-booking/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger scopes the request logger to one handler operation, tagging
// the reservation and member the request resolved to.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if id, ok := ReservationIDFromContext(ctx); ok && id != "" {
		pairs = append(pairs, "reservation_id", id)
	}
	if principal, ok := PrincipalFromContext(ctx); ok && principal.Email != "" {
		pairs = append(pairs, "member", principal.Email)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}
