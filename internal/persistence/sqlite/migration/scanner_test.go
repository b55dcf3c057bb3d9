package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannerScanMigrations(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"002_add_index.sql":     {Data: []byte("CREATE INDEX idx ON things (name);")},
		"001_create_things.sql": {Data: []byte("-- Description: Things table\nCREATE TABLE things (id TEXT PRIMARY KEY, name TEXT);")},
		"README.md":             {Data: []byte("not a migration")},
	}

	migrations, err := NewScanner().ScanMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "Things table", migrations[0].Description)
	assert.Equal(t, "002", migrations[1].Version)
	assert.Equal(t, "add index", migrations[1].Description)
	assert.Len(t, migrations[0].Checksum, 64)
}

func TestScannerRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	cases := map[string]fstest.MapFS{
		"bad name":    {"create_things.sql": {Data: []byte("CREATE TABLE t (id TEXT);")}},
		"empty":       {"001_empty.sql": {Data: []byte("-- nothing here\n")}},
		"parentheses": {"001_broken.sql": {Data: []byte("CREATE TABLE t (id TEXT;")}},
	}

	for name, fsys := range cases {
		fsys := fsys
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewScanner().ScanMigrations(fsys)
			require.ErrorIs(t, err, ErrInvalidMigrationFile)
		})
	}
}

func TestScannerRejectsDuplicateVersions(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"001_first.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
		"001_again.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
	}

	_, err := NewScanner().ScanMigrations(fsys)
	require.ErrorIs(t, err, ErrDuplicateVersion)
}

func TestParseSQLDropsComments(t *testing.T) {
	t.Parallel()

	statements := parseSQL("-- header\nCREATE TABLE a (id TEXT);\n\n-- second\nCREATE INDEX i ON a (id);\n")
	assert.Equal(t, []string{"CREATE TABLE a (id TEXT)", "CREATE INDEX i ON a (id)"}, statements)
}

func TestEmbeddedSchemaScans(t *testing.T) {
	t.Parallel()

	migrations, err := NewScanner().ScanMigrations(Schema())
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "001", migrations[0].Version)
}
