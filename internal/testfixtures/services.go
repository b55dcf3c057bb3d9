package testfixtures

import (
	"io"
	"log/slog"
	"time"

	"github.com/example/facility-booking/internal/access"
	"github.com/example/facility-booking/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Policy      application.Policy
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Policy:      application.DefaultPolicy(Pacific()),
		Logger:      DiscardLogger(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithPolicy overrides the booking policy.
func WithPolicy(policy application.Policy) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Policy = policy
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// BookingStore is the storage surface the booking services share.
type BookingStore interface {
	application.ReservationRepository
	application.ReservationSnapshotter
}

// Services groups the booking services wired against one store.
type Services struct {
	Validator    *application.Validator
	Reservations *application.ReservationService
	Lifecycle    *application.LifecycleService
	Access       *application.AccessService
}

// NewServices wires every booking service against store and members.
func (f *ServiceFactory) NewServices(store BookingStore, members application.MemberDirectory) Services {
	now := f.Clock.NowFunc()
	ids := f.IDGenerator.NextFunc()
	validator := application.NewValidator(store, members, f.Policy, now, f.Logger)
	return Services{
		Validator:    validator,
		Reservations: application.NewReservationService(validator, store, ids, now, f.Logger),
		Lifecycle:    application.NewLifecycleService(store, f.Policy, ids, now, f.Logger),
		Access:       application.NewAccessService(store, access.NewResolver(access.DefaultGrace, f.Logger), now, f.Logger),
	}
}
