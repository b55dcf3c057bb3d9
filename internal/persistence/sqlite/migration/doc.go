// Package migration applies versioned SQL schema changes to the booking
// database.
//
// Migration files follow the naming convention {version}_{description}.sql
// (e.g. "001_reservations.sql") and are read from an fs.FS, normally the
// files embedded in this package. Each file runs inside its own
// transaction and is recorded in the schema_migrations table so that it is
// applied only once.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewScanner(), migration.NewExecutor(db, logger), migration.Schema(), logger)
//	if err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
