package main

import (
	"context"
	"time"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/persistence"
	"github.com/example/facility-booking/internal/scheduler"
)

// reservationStoreAdapter exposes the SQLite repository to the application
// layer. Times are converted into the facility's location; stored expiry
// dates become local midnight.
type reservationStoreAdapter struct {
	repo     persistence.ReservationRepository
	location *time.Location
}

func newReservationStoreAdapter(repo persistence.ReservationRepository, loc *time.Location) *reservationStoreAdapter {
	if loc == nil {
		loc = time.UTC
	}
	return &reservationStoreAdapter{repo: repo, location: loc}
}

func (a *reservationStoreAdapter) CreateReservations(ctx context.Context, reservations []application.Reservation) error {
	models := make([]persistence.Reservation, 0, len(reservations))
	for _, r := range reservations {
		models = append(models, toPersistenceReservation(r))
	}
	return a.repo.CreateReservations(ctx, models)
}

func (a *reservationStoreAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	return readerAdapter{reader: a.repo, location: a.location}.GetReservation(ctx, id)
}

func (a *reservationStoreAdapter) ListReservations(ctx context.Context, filter application.ReservationRepositoryFilter) ([]application.Reservation, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}
	var expiresOn *time.Time
	if filter.ExpiresOn != nil {
		day := filter.ExpiresOn.In(a.location)
		expiresOn = &day
	}
	models, err := a.repo.ListReservations(ctx, persistence.ReservationFilter{
		Statuses:        statuses,
		Owner:           filter.Owner,
		Secret:          filter.Secret,
		StartsAfter:     filter.StartsAfter,
		StartsBefore:    filter.StartsBefore,
		ExpiresOn:       expiresOn,
		SuspendedBefore: filter.SuspendedBefore,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models, a.location), nil
}

func (a *reservationStoreAdapter) SaveTransition(ctx context.Context, reservation application.Reservation, entry application.AuditEntry) error {
	return a.repo.SaveTransition(ctx, toPersistenceReservation(reservation), persistence.AuditEntry{
		ID:            entry.ID,
		ReservationID: entry.ReservationID,
		Actor:         entry.Actor,
		Action:        entry.Action,
		FromStatus:    string(entry.FromStatus),
		ToStatus:      string(entry.ToStatus),
		Note:          entry.Note,
		CreatedAt:     entry.CreatedAt,
	})
}

func (a *reservationStoreAdapter) Snapshot(ctx context.Context, fn func(ctx context.Context, reader application.ReservationReader) error) error {
	return a.repo.Snapshot(ctx, func(ctx context.Context, reader persistence.ReservationReader) error {
		return fn(ctx, readerAdapter{reader: reader, location: a.location})
	})
}

type readerAdapter struct {
	reader   persistence.ReservationReader
	location *time.Location
}

func (r readerAdapter) ListActive(ctx context.Context, from, to time.Time) ([]application.Reservation, error) {
	models, err := r.reader.ListActive(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models, r.location), nil
}

func (r readerAdapter) ListActiveByOwner(ctx context.Context, owner string, since time.Time) ([]application.Reservation, error) {
	models, err := r.reader.ListActiveByOwner(ctx, owner, since)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models, r.location), nil
}

func (r readerAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	model, err := r.reader.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(model, r.location), nil
}

func toApplicationReservations(models []persistence.Reservation, loc *time.Location) []application.Reservation {
	if len(models) == 0 {
		return nil
	}
	out := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationReservation(model, loc))
	}
	return out
}

func toApplicationReservation(model persistence.Reservation, loc *time.Location) application.Reservation {
	var expiresOn *time.Time
	if model.ExpiresOn != nil {
		day := time.Date(model.ExpiresOn.Year(), model.ExpiresOn.Month(), model.ExpiresOn.Day(), 0, 0, 0, 0, loc)
		expiresOn = &day
	}
	return application.Reservation{
		Reservation: scheduler.Reservation{
			ID:              model.ID,
			Owner:           model.Owner,
			Start:           model.Start.In(loc),
			End:             model.End.In(loc),
			Rooms:           append([]string(nil), model.Rooms...),
			SetupMinutes:    model.SetupMinutes,
			TeardownMinutes: model.TeardownMinutes,
			Status:          scheduler.Status(model.Status),
			SecondaryOwner:  model.SecondaryOwner,
			Secret:          model.Secret,
		},
		Name:                  model.Name,
		Description:           model.Description,
		PartySize:             model.PartySize,
		ContactName:           model.ContactName,
		ContactPhone:          model.ContactPhone,
		Staff:                 append([]string(nil), model.Staff...),
		OriginalStatus:        scheduler.Status(model.OriginalStatus),
		OwnerSuspendedAt:      cloneTime(model.OwnerSuspendedAt),
		ExpiresOn:             expiresOn,
		SeriesID:              model.SeriesID,
		RecurrenceDescription: model.RecurrenceDescription,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}

func toPersistenceReservation(r application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:                    r.ID,
		SeriesID:              r.SeriesID,
		Owner:                 r.Owner,
		SecondaryOwner:        r.SecondaryOwner,
		Name:                  r.Name,
		Description:           r.Description,
		PartySize:             r.PartySize,
		ContactName:           r.ContactName,
		ContactPhone:          r.ContactPhone,
		Start:                 r.Start,
		End:                   r.End,
		Rooms:                 append([]string(nil), r.Rooms...),
		Staff:                 append([]string(nil), r.Staff...),
		SetupMinutes:          r.SetupMinutes,
		TeardownMinutes:       r.TeardownMinutes,
		Status:                string(r.Status),
		OriginalStatus:        string(r.OriginalStatus),
		Secret:                r.Secret,
		OwnerSuspendedAt:      cloneTime(r.OwnerSuspendedAt),
		ExpiresOn:             cloneTime(r.ExpiresOn),
		RecurrenceDescription: r.RecurrenceDescription,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
