package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/facility-booking/internal/metrics"
)

const (
	memberStatusSuspended = "suspended"
	memberStatusActive    = "active"
)

type ownerStatusService interface {
	SuspendOwner(ctx context.Context, owner string) (int, error)
	RestoreOwner(ctx context.Context, owner string) (int, error)
}

// StatusChangeHandler lets the membership application report a member's
// new standing.
type StatusChangeHandler struct {
	service   ownerStatusService
	metrics   *metrics.Metrics
	logger    *slog.Logger
	responder responder
}

func NewStatusChangeHandler(service ownerStatusService, m *metrics.Metrics, logger *slog.Logger) *StatusChangeHandler {
	return &StatusChangeHandler{
		service:   service,
		metrics:   m,
		logger:    logger,
		responder: newResponder(logger),
	}
}

// Post reads the "email" and "status" form fields. A suspended member's
// future reservations go on hold and an active member's held reservations
// are restored; any other status is acknowledged without changes.
func (h *StatusChangeHandler) Post(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	email := strings.ToLower(strings.TrimSpace(r.PostForm.Get("email")))
	status := strings.ToLower(strings.TrimSpace(r.PostForm.Get("status")))
	if email == "" || status == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingStatusFields)
		return
	}

	logger := handlerLogger(r.Context(), h.logger, "StatusChangeHandler", "Post", "member_email", email, "member_status", status)

	var (
		changed int
		err     error
	)
	switch status {
	case memberStatusSuspended:
		changed, err = h.service.SuspendOwner(r.Context(), email)
		h.metrics.AddSwept("suspend", changed)
	case memberStatusActive:
		changed, err = h.service.RestoreOwner(r.Context(), email)
		h.metrics.AddSwept("restore", changed)
	default:
		logger.InfoContext(r.Context(), "taking no action for member status")
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member status applied", "changed", changed)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, statusChangeResponse{Changed: changed})
}

type statusChangeResponse struct {
	Changed int `json:"changed"`
}
