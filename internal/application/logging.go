package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/facility-booking/internal/logging"
	"github.com/example/facility-booking/internal/membership"
	"github.com/example/facility-booking/internal/recurrence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, recurrence.ErrUnknownFrequency):
		return "unknown_frequency"
	case errors.Is(err, membership.ErrLookupFailed):
		return "membership_lookup"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		if vErr.Kind != "" {
			return string(vErr.Kind)
		}
		return "validation"
	}

	return "unexpected"
}
