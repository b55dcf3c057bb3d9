package migration

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewConnectionManager(InMemoryTestSQLiteConfig()).GetConnection()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestManager(db *sql.DB, source fstest.MapFS) *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(NewScanner(), NewExecutor(db, logger), source, logger)
}

func TestManagerRunAppliesPendingOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	source := fstest.MapFS{
		"001_things.sql": {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);")},
		"002_more.sql":   {Data: []byte("ALTER TABLE things ADD COLUMN name TEXT;\nINSERT INTO things (id, name) VALUES ('a', 'first');")},
	}
	manager := newTestManager(db, source)

	require.NoError(t, manager.Run(ctx))
	require.NoError(t, manager.Run(ctx))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM things").Scan(&count))
	assert.Equal(t, 1, count)

	status, err := manager.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "002", status.CurrentVersion)
	assert.Empty(t, status.Pending)
	assert.Len(t, status.Applied, 2)
}

func TestManagerRunRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	source := fstest.MapFS{
		"001_things.sql": {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);\nINSERT INTO missing_table VALUES (1);")},
	}

	err := newTestManager(db, source).Run(ctx)
	require.ErrorIs(t, err, ErrMigrationFailed)

	applied, err := NewExecutor(db, nil).IsVersionApplied(ctx, "001")
	require.NoError(t, err)
	assert.False(t, applied)

	var name string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'things'").Scan(&name)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestManagerDetectsSequenceGap(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	source := fstest.MapFS{
		"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
		"003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
	}

	_, err := newTestManager(db, source).Pending(context.Background())
	require.ErrorIs(t, err, ErrVersionConflict)
}

func TestEmbeddedSchemaApplies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := NewManager(NewScanner(), NewExecutor(db, logger), Schema(), logger)

	require.NoError(t, manager.Run(ctx))

	for _, table := range []string{"reservations", "reservation_rooms", "reservation_staff", "audit_entries"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestConnectionManagerValidateConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultSQLiteConfig("")
	require.Error(t, NewConnectionManager(cfg).ValidateConfig())

	cfg = DefaultSQLiteConfig("/tmp/booking.db")
	cfg.JournalMode = "BOGUS"
	require.Error(t, NewConnectionManager(cfg).ValidateConfig())

	cfg = DefaultSQLiteConfig("/tmp/booking.db")
	require.NoError(t, NewConnectionManager(cfg).ValidateConfig())
	assert.Contains(t, NewConnectionManager(cfg).DSN(), "foreign_keys%281%29")
}
