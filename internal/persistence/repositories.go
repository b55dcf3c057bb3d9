package persistence

import (
	"context"
	"time"
)

// ReservationFilter narrows reservation queries. Zero-valued fields are ignored.
type ReservationFilter struct {
	Statuses []string
	Owner    string
	Secret   string
	// StartsAfter and StartsBefore bound the start time, inclusive and exclusive.
	StartsAfter  *time.Time
	StartsBefore *time.Time
	// ExpiresOn matches the calendar date of the stored expiry.
	ExpiresOn *time.Time
	// SuspendedBefore matches reservations suspended at or before the instant.
	SuspendedBefore *time.Time
}

// ReservationReader exposes the reads used while checking a proposal.
type ReservationReader interface {
	// ListActive returns approved, pending and on-hold reservations whose
	// interval, widened by setup and teardown, intersects [from, to).
	ListActive(ctx context.Context, from, to time.Time) ([]Reservation, error)
	// ListActiveByOwner returns the owner's active reservations starting at or after since.
	ListActiveByOwner(ctx context.Context, owner string, since time.Time) ([]Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
}

// ReservationRepository stores reservations and their audit trail.
type ReservationRepository interface {
	ReservationReader
	CreateReservations(ctx context.Context, reservations []Reservation) error
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// SaveTransition updates the reservation and appends the audit entry atomically.
	SaveTransition(ctx context.Context, reservation Reservation, entry AuditEntry) error
	ListAuditEntries(ctx context.Context, reservationID string) ([]AuditEntry, error)
	// Snapshot runs fn against a consistent read view.
	Snapshot(ctx context.Context, fn func(ctx context.Context, reader ReservationReader) error) error
}
