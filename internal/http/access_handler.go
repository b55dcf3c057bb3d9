package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/facility-booking/internal/access"
	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/metrics"
)

type accessService interface {
	Check(ctx context.Context, secret string) (access.Decision, error)
}

// AccessHandler answers captive-portal checks of event secrets.
type AccessHandler struct {
	service   accessService
	metrics   *metrics.Metrics
	location  *time.Location
	logger    *slog.Logger
	responder responder
}

func NewAccessHandler(service accessService, m *metrics.Metrics, loc *time.Location, logger *slog.Logger) *AccessHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AccessHandler{
		service:   service,
		metrics:   m,
		location:  loc,
		logger:    logger,
		responder: newResponder(logger),
	}
}

// CheckWifi resolves the "event" form field. Refusals are reported as
// {"valid": false} with status 200.
func (h *AccessHandler) CheckWifi(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	decision, err := h.service.Check(r.Context(), r.PostForm.Get("event"))
	if err != nil && !errors.Is(err, application.ErrUnauthorized) {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.metrics.ObserveAccessCheck(decision.Authorized)

	if decision.LongSession {
		handlerLogger(r.Context(), h.logger, "AccessHandler", "CheckWifi").
			WarnContext(r.Context(), "long access session granted", "remaining_seconds", decision.RemainingSeconds)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, decision.Wire(h.location))
}
