package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/logging"
	"github.com/example/facility-booking/internal/metrics"
)

const (
	memberEmailHeader = "X-Member-Email"
	appKeyHeader      = "X-App-Key"
)

// PrincipalResolver turns a member email into the acting principal.
type PrincipalResolver interface {
	Principal(ctx context.Context, email string) application.Principal
}

// IdentifyMember attaches the principal named by the X-Member-Email header.
// Requests without the header continue anonymously.
func IdentifyMember(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := strings.TrimSpace(r.Header.Get(memberEmailHeader))
			if email == "" || resolver == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := ContextWithPrincipal(r.Context(), resolver.Principal(r.Context(), email))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAppKey guards the restricted application API. The presented
// X-App-Key must match the argon2id hash; an empty hash disables the API.
func RequireAppKey(hash string, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if strings.TrimSpace(hash) == "" {
				responder.writeError(ctx, w, http.StatusForbidden, errAppAPIDisabled)
				return
			}
			key := r.Header.Get(appKeyHeader)
			if key == "" {
				responder.writeError(ctx, w, http.StatusForbidden, errAppNotAuthorized)
				return
			}
			if err := application.VerifyAppKey(hash, key); err != nil {
				if errors.Is(err, application.ErrAppKeyMismatch) {
					responder.writeError(ctx, w, http.StatusForbidden, errAppNotAuthorized)
					return
				}
				responder.loggerFor(ctx).ErrorContext(ctx, "configured app key hash is unusable", "error", err)
				responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: statusMessage(http.StatusInternalServerError)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

// RequestMetrics records handler latency per route template.
func RequestMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			m.ObserveRequest(routeLabel(r.URL.Path), strconv.Itoa(rec.status), time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// routeLabel collapses reservation identifiers so the label set stays bounded.
func routeLabel(path string) string {
	switch path {
	case "/reservations", "/reservations/validate", "/reservations/bulk-check",
		"/check_wifi", "/api/v1/status_change", "/metrics":
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/reservations/"); ok && rest != "" {
		if strings.HasSuffix(rest, "/actions") {
			return "/reservations/{id}/actions"
		}
		return "/reservations/{id}"
	}
	return "other"
}
