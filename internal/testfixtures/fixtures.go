package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/persistence"
	"github.com/example/facility-booking/internal/scheduler"
)

var reservationCounter uint64

var pacific = mustLoad("America/Los_Angeles")

// referenceTime is Monday 4 March 2024, 10:00 in the facility's time zone.
var referenceTime = time.Date(2024, time.March, 4, 10, 0, 0, 0, pacific)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: load %s: %v", name, err))
	}
	return loc
}

// Pacific returns the facility's time zone.
func Pacific() *time.Location {
	return pacific
}

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns the given wall-clock time in the facility's time zone.
func At(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, pacific)
}

// ReservationFixture represents a deterministic reservation that can be
// materialised for application or persistence tests.
type ReservationFixture struct {
	ID              string
	SeriesID        string
	Owner           string
	SecondaryOwner  string
	Name            string
	Description     string
	PartySize       int
	ContactName     string
	ContactPhone    string
	Start           time.Time
	End             time.Time
	Rooms           []string
	Staff           []string
	SetupMinutes    int
	TeardownMinutes int
	Status          scheduler.Status
	Secret          string
	ExpiresOn       *time.Time
	SuspendedAt     *time.Time
	CreatedAt       time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a pending two-hour reservation in the
// Gallery a week after ReferenceTime, with optional overrides.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	start := referenceTime.AddDate(0, 0, 7).Add(time.Duration(idx%4) * time.Hour)
	fixture := ReservationFixture{
		ID:          fmt.Sprintf("reservation-%03d", idx),
		Owner:       "owner@example.com",
		Name:        fmt.Sprintf("Event %03d", idx),
		Description: "Community meetup",
		PartySize:   20,
		Start:       start,
		End:         start.Add(2 * time.Hour),
		Rooms:       []string{"Gallery"},
		Status:      scheduler.StatusPending,
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithOwner overrides the owner email.
func WithOwner(email string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Owner = email
	}
}

// WithSecondaryOwner sets the secondary owner email.
func WithSecondaryOwner(email string) ReservationOption {
	return func(f *ReservationFixture) {
		f.SecondaryOwner = email
	}
}

// WithWindow sets the start and end times.
func WithWindow(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = end
	}
}

// WithRooms replaces the booked rooms.
func WithRooms(rooms ...string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Rooms = rooms
	}
}

// WithStaff sets the volunteer staff.
func WithStaff(emails ...string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Staff = emails
	}
}

// WithPadding sets setup and teardown minutes.
func WithPadding(setup, teardown int) ReservationOption {
	return func(f *ReservationFixture) {
		f.SetupMinutes = setup
		f.TeardownMinutes = teardown
	}
}

// WithStatus overrides the lifecycle status.
func WithStatus(status scheduler.Status) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
	}
}

// WithSecret sets the access secret.
func WithSecret(secret string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Secret = secret
	}
}

// WithSeries sets the recurrence series ID.
func WithSeries(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.SeriesID = id
	}
}

// WithExpiresOn sets the pending expiry date.
func WithExpiresOn(day time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.ExpiresOn = &day
	}
}

// WithSuspendedAt marks the reservation as held for a suspended owner.
func WithSuspendedAt(t time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.SuspendedAt = &t
	}
}

// WithContact sets the contact name and phone.
func WithContact(name, phone string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ContactName = name
		f.ContactPhone = phone
	}
}

// Scheduler returns the fixture as the constraint engine sees it.
func (f ReservationFixture) Scheduler() scheduler.Reservation {
	return scheduler.Reservation{
		ID:              f.ID,
		Owner:           f.Owner,
		Start:           f.Start,
		End:             f.End,
		Rooms:           append([]string(nil), f.Rooms...),
		SetupMinutes:    f.SetupMinutes,
		TeardownMinutes: f.TeardownMinutes,
		Status:          f.Status,
		SecondaryOwner:  f.SecondaryOwner,
		Secret:          f.Secret,
	}
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		Reservation:      f.Scheduler(),
		Name:             f.Name,
		Description:      f.Description,
		PartySize:        f.PartySize,
		ContactName:      f.ContactName,
		ContactPhone:     f.ContactPhone,
		Staff:            append([]string(nil), f.Staff...),
		OwnerSuspendedAt: copyTime(f.SuspendedAt),
		ExpiresOn:        copyTime(f.ExpiresOn),
		SeriesID:         f.SeriesID,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:               f.ID,
		SeriesID:         f.SeriesID,
		Owner:            f.Owner,
		SecondaryOwner:   f.SecondaryOwner,
		Name:             f.Name,
		Description:      f.Description,
		PartySize:        f.PartySize,
		ContactName:      f.ContactName,
		ContactPhone:     f.ContactPhone,
		Start:            f.Start,
		End:              f.End,
		Rooms:            append([]string(nil), f.Rooms...),
		Staff:            append([]string(nil), f.Staff...),
		SetupMinutes:     f.SetupMinutes,
		TeardownMinutes:  f.TeardownMinutes,
		Status:           string(f.Status),
		Secret:           f.Secret,
		OwnerSuspendedAt: copyTime(f.SuspendedAt),
		ExpiresOn:        copyTime(f.ExpiresOn),
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.CreatedAt,
	}
}

// Input returns a reservation request matching the fixture.
func (f ReservationFixture) Input() application.ReservationInput {
	return application.ReservationInput{
		Name:            f.Name,
		Description:     f.Description,
		PartySize:       fmt.Sprintf("%d", f.PartySize),
		Start:           f.Start,
		End:             f.End,
		Rooms:           append([]string(nil), f.Rooms...),
		SetupMinutes:    f.SetupMinutes,
		TeardownMinutes: f.TeardownMinutes,
		ContactName:     f.ContactName,
		ContactPhone:    f.ContactPhone,
		SecondaryOwner:  f.SecondaryOwner,
	}
}

// NewAuditEntry returns an audit entry for the reservation.
func NewAuditEntry(id, reservationID, action string, from, to scheduler.Status, at time.Time) persistence.AuditEntry {
	return persistence.AuditEntry{
		ID:            id,
		ReservationID: reservationID,
		Actor:         "admin@example.com",
		Action:        action,
		FromStatus:    string(from),
		ToStatus:      string(to),
		CreatedAt:     at,
	}
}

func copyTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}
