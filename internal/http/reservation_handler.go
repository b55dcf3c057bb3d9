package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/metrics"
)

const dateLayout = "2006-01-02"

type reservationService interface {
	Validate(ctx context.Context, params application.ValidateParams) (application.Validation, error)
	CreateReservations(ctx context.Context, params application.CreateReservationParams) ([]application.Reservation, error)
	UpdateReservation(ctx context.Context, params application.UpdateReservationParams) (application.Reservation, error)
	GetReservation(ctx context.Context, id string) (application.Reservation, error)
}

type lifecycleService interface {
	Perform(ctx context.Context, principal application.Principal, reservationID string, action application.Action) (application.Reservation, error)
	CheckBulk(ctx context.Context, principal application.Principal, action application.Action, ids []string) ([]application.BulkCheckResult, error)
}

type ReservationHandler struct {
	service   reservationService
	lifecycle lifecycleService
	metrics   *metrics.Metrics
	location  *time.Location
	logger    *slog.Logger
	responder responder
}

// NewReservationHandler wires the reservation endpoints. Times in responses
// are rendered in loc.
func NewReservationHandler(service reservationService, lifecycle lifecycleService, m *metrics.Metrics, loc *time.Location, logger *slog.Logger) *ReservationHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReservationHandler{
		service:   service,
		lifecycle: lifecycle,
		metrics:   m,
		location:  loc,
		logger:    logger,
		responder: newResponder(logger),
	}
}

func (h *ReservationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	validation, err := h.service.Validate(r.Context(), application.ValidateParams{
		Principal: principal,
		Input:     req.toInput(),
		EditingID: strings.TrimSpace(req.EditingID),
	})
	h.observeValidation(err)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toValidationResponse(validation))
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	created, err := h.service.CreateReservations(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	h.observeValidation(err)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "ReservationHandler", "Create").
		InfoContext(r.Context(), "reservations created", "count", len(created))

	payload := reservationsResponse{Reservations: make([]reservationDTO, 0, len(created))}
	for _, res := range created {
		payload.Reservations = append(payload.Reservations, h.toReservationDTO(res, principal))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, payload)
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	reservationID, ok := h.reservationID(w, r)
	if !ok {
		return
	}
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	updated, err := h.service.UpdateReservation(r.Context(), application.UpdateReservationParams{
		Principal:     principal,
		ReservationID: reservationID,
		Input:         req.toInput(),
	})
	h.observeValidation(err)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: h.toReservationDTO(updated, principal)})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	reservationID, ok := h.reservationID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	res, err := h.service.GetReservation(r.Context(), reservationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: h.toReservationDTO(res, principal)})
}

func (h *ReservationHandler) Act(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.lifecycle == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	reservationID, ok := h.reservationID(w, r)
	if !ok {
		return
	}
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	action, err := application.ParseAction(req.Action)
	if err != nil {
		h.metrics.ObserveTransition("unknown", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	updated, err := h.lifecycle.Perform(r.Context(), principal, reservationID, action)
	if err != nil {
		h.metrics.ObserveTransition(string(action), application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.metrics.ObserveTransition(string(action), "ok")

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: h.toReservationDTO(updated, principal)})
}

func (h *ReservationHandler) BulkCheck(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.lifecycle == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req bulkCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	action, err := application.ParseAction(req.Action)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	results, err := h.lifecycle.CheckBulk(r.Context(), principal, action, req.IDs)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := bulkCheckResponse{Action: string(action), Results: make([]bulkCheckResultDTO, 0, len(results))}
	for _, result := range results {
		payload.Results = append(payload.Results, bulkCheckResultDTO{
			ReservationID: result.ReservationID,
			Allowed:       result.Allowed,
			Reason:        result.Reason,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

func (h *ReservationHandler) requirePrincipal(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok || principal.Email == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingMemberEmail)
		return application.Principal{}, false
	}
	return principal, true
}

func (h *ReservationHandler) reservationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservation)
		return "", false
	}
	return id, true
}

func (h *ReservationHandler) observeValidation(err error) {
	if err == nil {
		h.metrics.ObserveValidation("ok")
		return
	}
	h.metrics.ObserveValidation(application.ErrorKind(err))
}

type recurrenceDTO struct {
	Frequency    string `json:"frequency"`
	Repetitions  int    `json:"repetitions"`
	Ordinal      int    `json:"ordinal,omitempty"`
	Weekday      string `json:"weekday,omitempty"`
	WeekdaysOnly bool   `json:"weekdays_only,omitempty"`
}

type reservationRequest struct {
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	PartySize        string         `json:"party_size"`
	Start            time.Time      `json:"start"`
	End              time.Time      `json:"end"`
	Rooms            []string       `json:"rooms"`
	SetupMinutes     int            `json:"setup_minutes"`
	TeardownMinutes  int            `json:"teardown_minutes"`
	ContactName      string         `json:"contact_name"`
	ContactPhone     string         `json:"contact_phone"`
	SecondaryOwner   string         `json:"secondary_owner"`
	Recurrence       *recurrenceDTO `json:"recurrence,omitempty"`
	EvaluateAsMember bool           `json:"evaluate_as_member"`
}

func (r reservationRequest) toInput() application.ReservationInput {
	input := application.ReservationInput{
		Name:             r.Name,
		Description:      r.Description,
		PartySize:        r.PartySize,
		Start:            r.Start,
		End:              r.End,
		Rooms:            r.Rooms,
		SetupMinutes:     r.SetupMinutes,
		TeardownMinutes:  r.TeardownMinutes,
		ContactName:      r.ContactName,
		ContactPhone:     r.ContactPhone,
		SecondaryOwner:   r.SecondaryOwner,
		EvaluateAsMember: r.EvaluateAsMember,
	}
	if r.Recurrence != nil {
		input.Recurrence = &application.RecurrenceInput{
			Frequency:    r.Recurrence.Frequency,
			Repetitions:  r.Recurrence.Repetitions,
			Ordinal:      r.Recurrence.Ordinal,
			Weekday:      r.Recurrence.Weekday,
			WeekdaysOnly: r.Recurrence.WeekdaysOnly,
		}
	}
	return input
}

type validateRequest struct {
	reservationRequest
	EditingID string `json:"editing_id"`
}

type actionRequest struct {
	Action string `json:"action"`
}

type bulkCheckRequest struct {
	Action string   `json:"action"`
	IDs    []string `json:"ids"`
}

type occurrenceDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type validationResponse struct {
	Valid          bool            `json:"valid"`
	Owner          string          `json:"owner"`
	Occurrences    []occurrenceDTO `json:"occurrences"`
	Description    string          `json:"recurrence_description,omitempty"`
	SecondaryOwner string          `json:"secondary_owner,omitempty"`
}

type reservationDTO struct {
	ID                    string     `json:"id"`
	SeriesID              string     `json:"series_id,omitempty"`
	Owner                 string     `json:"owner"`
	SecondaryOwner        string     `json:"secondary_owner,omitempty"`
	Name                  string     `json:"name"`
	Description           string     `json:"description,omitempty"`
	PartySize             int        `json:"party_size"`
	ContactName           string     `json:"contact_name,omitempty"`
	ContactPhone          string     `json:"contact_phone,omitempty"`
	Start                 time.Time  `json:"start"`
	End                   time.Time  `json:"end"`
	Rooms                 []string   `json:"rooms"`
	Staff                 []string   `json:"staff,omitempty"`
	SetupMinutes          int        `json:"setup_minutes"`
	TeardownMinutes       int        `json:"teardown_minutes"`
	Status                string     `json:"status"`
	Secret                string     `json:"secret,omitempty"`
	ExpiresOn             string     `json:"expires_on,omitempty"`
	OwnerSuspendedAt      *time.Time `json:"owner_suspended_at,omitempty"`
	RecurrenceDescription string     `json:"recurrence_description,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type reservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type bulkCheckResultDTO struct {
	ReservationID string `json:"reservation_id"`
	Allowed       bool   `json:"allowed"`
	Reason        string `json:"reason,omitempty"`
}

type bulkCheckResponse struct {
	Action  string               `json:"action"`
	Results []bulkCheckResultDTO `json:"results"`
}

func (h *ReservationHandler) toValidationResponse(v application.Validation) validationResponse {
	occurrences := make([]occurrenceDTO, 0, len(v.Occurrences))
	for _, occ := range v.Occurrences {
		occurrences = append(occurrences, occurrenceDTO{Start: occ.Start.In(h.location), End: occ.End.In(h.location)})
	}
	return validationResponse{
		Valid:          true,
		Owner:          v.Owner,
		Occurrences:    occurrences,
		Description:    v.Description,
		SecondaryOwner: v.SecondaryOwner,
	}
}

// toReservationDTO renders res for viewer. The access secret is only shown
// to the owners and administrators.
func (h *ReservationHandler) toReservationDTO(res application.Reservation, viewer application.Principal) reservationDTO {
	dto := reservationDTO{
		ID:                    res.ID,
		SeriesID:              res.SeriesID,
		Owner:                 res.Owner,
		SecondaryOwner:        res.SecondaryOwner,
		Name:                  res.Name,
		Description:           res.Description,
		PartySize:             res.PartySize,
		ContactName:           res.ContactName,
		ContactPhone:          res.ContactPhone,
		Start:                 res.Start.In(h.location),
		End:                   res.End.In(h.location),
		Rooms:                 append([]string(nil), res.Rooms...),
		Staff:                 append([]string(nil), res.Staff...),
		SetupMinutes:          res.SetupMinutes,
		TeardownMinutes:       res.TeardownMinutes,
		Status:                string(res.Status),
		RecurrenceDescription: res.RecurrenceDescription,
		CreatedAt:             res.CreatedAt,
		UpdatedAt:             res.UpdatedAt,
	}
	if res.ExpiresOn != nil {
		dto.ExpiresOn = res.ExpiresOn.Format(dateLayout)
	}
	if res.OwnerSuspendedAt != nil {
		at := *res.OwnerSuspendedAt
		dto.OwnerSuspendedAt = &at
	}
	if viewer.IsAdmin || strings.EqualFold(viewer.Email, res.Owner) || (res.SecondaryOwner != "" && strings.EqualFold(viewer.Email, res.SecondaryOwner)) {
		dto.Secret = res.Secret
	}
	return dto
}
