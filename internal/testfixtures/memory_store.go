package testfixtures

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/scheduler"
)

// MemoryStore is an in-memory BookingStore for transport and service tests.
type MemoryStore struct {
	mu           sync.Mutex
	reservations []application.Reservation
	audits       []application.AuditEntry
}

// NewMemoryStore seeds a store with reservations.
func NewMemoryStore(reservations ...application.Reservation) *MemoryStore {
	return &MemoryStore{reservations: append([]application.Reservation(nil), reservations...)}
}

// Snapshot runs fn against the live store.
func (s *MemoryStore) Snapshot(ctx context.Context, fn func(ctx context.Context, reader application.ReservationReader) error) error {
	return fn(ctx, s)
}

func (s *MemoryStore) ListActive(_ context.Context, from, to time.Time) ([]application.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []application.Reservation
	for _, r := range s.reservations {
		if r.Status.IsActive() && r.End.After(from) && r.Start.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListActiveByOwner(_ context.Context, owner string, since time.Time) ([]application.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []application.Reservation
	for _, r := range s.reservations {
		if strings.EqualFold(r.Owner, owner) && r.Status.IsActive() && !r.Start.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetReservation(_ context.Context, id string) (application.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.ID == id {
			return r, nil
		}
	}
	return application.Reservation{}, application.ErrNotFound
}

func (s *MemoryStore) CreateReservations(_ context.Context, reservations []application.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations = append(s.reservations, reservations...)
	return nil
}

func (s *MemoryStore) ListReservations(_ context.Context, filter application.ReservationRepositoryFilter) ([]application.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []application.Reservation
	for _, r := range s.reservations {
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, r.Status) {
			continue
		}
		if filter.Owner != "" && !strings.EqualFold(r.Owner, filter.Owner) {
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

func (s *MemoryStore) SaveTransition(_ context.Context, reservation application.Reservation, entry application.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reservations {
		if s.reservations[i].ID == reservation.ID {
			s.reservations[i] = reservation
			s.audits = append(s.audits, entry)
			return nil
		}
	}
	return application.ErrNotFound
}

// Audits returns a copy of the recorded audit entries.
func (s *MemoryStore) Audits() []application.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]application.AuditEntry(nil), s.audits...)
}

// Len reports how many reservations are stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

func hasStatus(statuses []scheduler.Status, status scheduler.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Members is a static MemberDirectory.
type Members map[string]bool

// IsMember reports whether email was registered as a member.
func (m Members) IsMember(_ context.Context, email string) (bool, error) {
	return m[strings.ToLower(strings.TrimSpace(email))], nil
}
