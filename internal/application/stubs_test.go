package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/facility-booking/internal/scheduler"
)

var pacific = func() *time.Location {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// referenceNow is Monday 4 March 2024, 10:00 Pacific.
var referenceNow = time.Date(2024, time.March, 4, 10, 0, 0, 0, pacific)

func at(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2024, month, day, hour, minute, 0, 0, pacific)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

type reservationStoreStub struct {
	mu           sync.Mutex
	reservations []Reservation
	audits       []AuditEntry
	snapshots    int
	err          error
}

func newStoreStub(reservations ...Reservation) *reservationStoreStub {
	return &reservationStoreStub{reservations: reservations}
}

func (s *reservationStoreStub) Snapshot(ctx context.Context, fn func(ctx context.Context, reader ReservationReader) error) error {
	s.mu.Lock()
	s.snapshots++
	s.mu.Unlock()
	return fn(ctx, s)
}

func (s *reservationStoreStub) ListActive(ctx context.Context, from, to time.Time) ([]Reservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.reservations {
		if r.Status.IsActive() && r.End.After(from) && r.Start.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *reservationStoreStub) ListActiveByOwner(ctx context.Context, owner string, since time.Time) ([]Reservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.reservations {
		if r.Owner == owner && r.Status.IsActive() && !r.Start.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *reservationStoreStub) GetReservation(ctx context.Context, id string) (Reservation, error) {
	if s.err != nil {
		return Reservation{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.ID == id {
			return r, nil
		}
	}
	return Reservation{}, ErrNotFound
}

func (s *reservationStoreStub) CreateReservations(ctx context.Context, reservations []Reservation) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations = append(s.reservations, reservations...)
	return nil
}

func (s *reservationStoreStub) ListReservations(ctx context.Context, filter ReservationRepositoryFilter) ([]Reservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.reservations {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, r.Status) {
			continue
		}
		if filter.Owner != "" && r.Owner != filter.Owner {
			continue
		}
		if filter.Secret != "" && r.Secret != filter.Secret {
			continue
		}
		if filter.StartsAfter != nil && !r.Start.After(*filter.StartsAfter) {
			continue
		}
		if filter.StartsBefore != nil && !r.Start.Before(*filter.StartsBefore) {
			continue
		}
		if filter.ExpiresOn != nil && (r.ExpiresOn == nil || !r.ExpiresOn.Equal(*filter.ExpiresOn)) {
			continue
		}
		if filter.SuspendedBefore != nil && (r.OwnerSuspendedAt == nil || r.OwnerSuspendedAt.After(*filter.SuspendedBefore)) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *reservationStoreStub) SaveTransition(ctx context.Context, reservation Reservation, entry AuditEntry) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reservations {
		if s.reservations[i].ID == reservation.ID {
			s.reservations[i] = reservation
			s.audits = append(s.audits, entry)
			return nil
		}
	}
	return ErrNotFound
}

func (s *reservationStoreStub) get(t *testing.T, id string) Reservation {
	t.Helper()
	r, err := s.GetReservation(context.Background(), id)
	if err != nil {
		t.Fatalf("reservation %s not found", id)
	}
	return r
}

type memberDirectoryStub struct {
	members map[string]bool
	err     error
}

func (m *memberDirectoryStub) IsMember(ctx context.Context, email string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.members[email], nil
}

type reservationOption func(*Reservation)

func withStatus(status scheduler.Status) reservationOption {
	return func(r *Reservation) { r.Status = status }
}

func withRooms(rooms ...string) reservationOption {
	return func(r *Reservation) { r.Rooms = rooms }
}

func withOwner(owner string) reservationOption {
	return func(r *Reservation) { r.Owner = owner }
}

func storedReservation(id string, start, end time.Time, opts ...reservationOption) Reservation {
	r := Reservation{
		Reservation: scheduler.Reservation{
			ID:     id,
			Owner:  "other@example.org",
			Start:  start,
			End:    end,
			Rooms:  []string{"Classroom"},
			Status: scheduler.StatusApproved,
		},
		Name:        "Stored " + id,
		Description: "stored",
		PartySize:   10,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func validInput(start, end time.Time) ReservationInput {
	return ReservationInput{
		Name:        "Go study group",
		Description: "Weekly reading of the Go memory model",
		PartySize:   "12",
		Start:       start,
		End:         end,
		Rooms:       []string{"Classroom"},
	}
}
