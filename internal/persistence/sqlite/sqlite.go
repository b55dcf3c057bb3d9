package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/facility-booking/internal/persistence/sqlite/migration"
)

// Storage bundles the connection pool with the repositories built on it.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Reservations *ReservationRepository
}

// Open connects to the database described by config.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:         pool,
		logger:       logger,
		Reservations: NewReservationRepository(pool),
	}, nil
}

// Close releases the underlying connections.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database answers.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.manager().Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending schema migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (migration.Status, error) {
	return s.manager().Status(ctx)
}

func (s *Storage) manager() *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(),
		migration.NewExecutor(s.pool.DB(), s.logger),
		migration.Schema(),
		s.logger,
	)
}
