package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/facility-booking/internal/persistence"
	"github.com/example/facility-booking/internal/scheduler"
)

// ReservationRepository captures the persistence interactions needed by the
// reservation services.
type ReservationRepository interface {
	// CreateReservations stores every reservation or none of them.
	CreateReservations(ctx context.Context, reservations []Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationRepositoryFilter) ([]Reservation, error)
	// SaveTransition persists the reservation and its audit entry together.
	SaveTransition(ctx context.Context, reservation Reservation, entry AuditEntry) error
}

// ReservationRepositoryFilter narrows queries issued to the reservation repository.
type ReservationRepositoryFilter struct {
	Statuses        []scheduler.Status
	Owner           string
	Secret          string
	StartsAfter     *time.Time
	StartsBefore    *time.Time
	ExpiresOn       *time.Time
	SuspendedBefore *time.Time
}

// ReservationService validates and stores reservations.
type ReservationService struct {
	validator    *Validator
	reservations ReservationRepository
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(validator *Validator, reservations ReservationRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		validator:    validator,
		reservations: reservations,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// Validate checks a proposal without storing anything.
func (s *ReservationService) Validate(ctx context.Context, params ValidateParams) (Validation, error) {
	if s == nil || s.validator == nil {
		return Validation{}, fmt.Errorf("ReservationService is nil")
	}
	if params.EditingID != "" && s.reservations != nil {
		existing, err := s.reservations.GetReservation(ctx, params.EditingID)
		if err != nil {
			return Validation{}, mapReservationRepoError(err)
		}
		if !canModify(existing, params.Principal) {
			return Validation{}, ErrUnauthorized
		}
		params.Owner = existing.Owner
	}
	return s.validator.Validate(ctx, params)
}

// CreateReservations validates the proposal and stores one pending
// reservation per occurrence.
func (s *ReservationService) CreateReservations(ctx context.Context, params CreateReservationParams) ([]Reservation, error) {
	if s == nil || s.validator == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "ReservationService", "CreateReservations", "principal_email", params.Principal.Email)

	validation, err := s.validator.Validate(ctx, ValidateParams{
		Principal: params.Principal,
		Input:     params.Input,
	})
	if err != nil {
		logger.WarnContext(ctx, "reservation rejected", "error_kind", ErrorKind(err), "error", err)
		return nil, err
	}

	now := s.now()
	policy := s.validator.Policy()
	expiresOn := policy.Today(now).AddDate(0, 0, policy.PendingLifetimeDays)
	partySize, _ := strconv.Atoi(strings.TrimSpace(params.Input.PartySize))

	var seriesID string
	if len(validation.Occurrences) > 1 {
		seriesID = s.idGenerator()
	}

	created := make([]Reservation, 0, len(validation.Occurrences))
	for _, occ := range validation.Occurrences {
		expiry := expiresOn
		created = append(created, Reservation{
			Reservation: scheduler.Reservation{
				ID:              s.idGenerator(),
				Owner:           validation.Owner,
				Start:           occ.Start,
				End:             occ.End,
				Rooms:           scheduler.UniqueRooms(params.Input.Rooms),
				SetupMinutes:    params.Input.SetupMinutes,
				TeardownMinutes: params.Input.TeardownMinutes,
				Status:          scheduler.StatusPending,
				SecondaryOwner:  validation.SecondaryOwner,
			},
			Name:                  strings.TrimSpace(params.Input.Name),
			Description:           params.Input.Description,
			PartySize:             partySize,
			ContactName:           params.Input.ContactName,
			ContactPhone:          params.Input.ContactPhone,
			ExpiresOn:             &expiry,
			SeriesID:              seriesID,
			RecurrenceDescription: validation.Description,
			CreatedAt:             now,
			UpdatedAt:             now,
		})
	}

	if s.reservations == nil {
		return created, nil
	}
	if err := s.reservations.CreateReservations(ctx, created); err != nil {
		logger.ErrorContext(ctx, "failed to store reservations", "error", err)
		return nil, mapReservationRepoError(err)
	}

	logger.InfoContext(ctx, "reservations created", "count", len(created), "series_id", seriesID)
	return created, nil
}

// UpdateReservation re-validates an edited reservation in place. Editing
// never expands a recurrence; each occurrence of a series is edited on its own.
func (s *ReservationService) UpdateReservation(ctx context.Context, params UpdateReservationParams) (Reservation, error) {
	if s == nil || s.validator == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "ReservationService", "UpdateReservation",
		"principal_email", params.Principal.Email,
		"reservation_id", params.ReservationID,
	)

	existing, err := s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	if !canModify(existing, params.Principal) {
		logger.WarnContext(ctx, "unauthorized edit attempt")
		return Reservation{}, ErrUnauthorized
	}

	input := params.Input
	input.Recurrence = nil
	validation, err := s.validator.Validate(ctx, ValidateParams{
		Principal: params.Principal,
		Input:     input,
		EditingID: existing.ID,
		Owner:     existing.Owner,
	})
	if err != nil {
		logger.WarnContext(ctx, "edit rejected", "error_kind", ErrorKind(err), "error", err)
		return Reservation{}, err
	}

	occ := validation.Occurrences[0]
	partySize, _ := strconv.Atoi(strings.TrimSpace(input.PartySize))
	updated := existing
	updated.Start = occ.Start
	updated.End = occ.End
	updated.Rooms = scheduler.UniqueRooms(input.Rooms)
	updated.SetupMinutes = input.SetupMinutes
	updated.TeardownMinutes = input.TeardownMinutes
	updated.SecondaryOwner = validation.SecondaryOwner
	updated.Name = strings.TrimSpace(input.Name)
	updated.Description = input.Description
	updated.PartySize = partySize
	updated.ContactName = input.ContactName
	updated.ContactPhone = input.ContactPhone
	updated.UpdatedAt = s.now()

	entry := AuditEntry{
		ID:            s.idGenerator(),
		ReservationID: updated.ID,
		Actor:         params.Principal.Email,
		Action:        "edit",
		FromStatus:    existing.Status,
		ToStatus:      updated.Status,
		CreatedAt:     updated.UpdatedAt,
	}
	if err := s.reservations.SaveTransition(ctx, updated, entry); err != nil {
		logger.ErrorContext(ctx, "failed to store edit", "error", err)
		return Reservation{}, mapReservationRepoError(err)
	}
	return updated, nil
}

// GetReservation returns a reservation by id.
func (s *ReservationService) GetReservation(ctx context.Context, id string) (Reservation, error) {
	if s == nil || s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}
	r, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	return r, nil
}

func canModify(r Reservation, principal Principal) bool {
	return principal.IsAdmin || (principal.Email != "" && strings.EqualFold(r.Owner, principal.Email))
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
