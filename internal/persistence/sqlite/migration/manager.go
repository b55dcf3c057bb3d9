package migration

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"time"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// Schema returns the booking database migrations embedded in the binary.
func Schema() fs.FS {
	sub, err := fs.Sub(schemaFiles, "schema")
	if err != nil {
		panic(fmt.Sprintf("migration: embedded schema: %v", err))
	}
	return sub
}

// Manager orchestrates the migration process.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	source   fs.FS
	logger   *slog.Logger
}

// NewManager creates a Manager reading migrations from source.
func NewManager(scanner *Scanner, executor *Executor, source fs.FS, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		source:   source,
		logger:   logger.With(slog.String("component", "migration")),
	}
}

// Run executes all pending migrations in sequential order.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()

	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.InfoContext(ctx, "database schema up to date")
		return nil
	}

	for i, migration := range pending {
		m.logger.InfoContext(ctx, "applying migration",
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
			slog.Int("position", i+1),
			slog.Int("total", len(pending)),
		)
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				slog.String("version", migration.Version),
				slog.Any("error", err),
			)
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	m.logger.InfoContext(ctx, "migrations applied",
		slog.Int("count", len(pending)),
		slog.Duration("duration", time.Since(started)),
	)
	return nil
}

// Pending returns migrations that still need to be applied.
func (m *Manager) Pending(ctx context.Context) ([]Migration, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, err
	}

	available, err := m.scanner.ScanMigrations(m.source)
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}

	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedMap := make(map[string]bool, len(applied))
	for _, a := range applied {
		appliedMap[a.Version] = true
	}

	var pending []Migration
	for _, migration := range available {
		if !appliedMap[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// Status reports the current schema version and the outstanding migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return Status{}, err
	}

	status := Status{Applied: applied, Pending: pending}
	maxVersion := -1
	for _, a := range applied {
		if v, err := strconv.Atoi(a.Version); err == nil && v > maxVersion {
			maxVersion = v
			status.CurrentVersion = a.Version
		}
	}
	return status, nil
}

// validateSequence rejects gaps in the available versions and applied
// versions that have no file.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	availableMap := make(map[int]bool, len(available))
	for i, migration := range available {
		version, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "validate sequence",
				fmt.Errorf("%w: version is not numeric", ErrInvalidMigrationFile))
		}
		if i > 0 {
			prev, _ := strconv.Atoi(available[i-1].Version)
			if version != prev+1 {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, prev+1)
			}
		}
		availableMap[version] = true
	}

	for _, a := range applied {
		version, err := strconv.Atoi(a.Version)
		if err != nil || !availableMap[version] {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
	}
	return nil
}
