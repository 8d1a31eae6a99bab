package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestMigrator_RunAppliesInVersionOrder(t *testing.T) {
	db := newTestDB(t)

	// Listed out of order on purpose; the loader must sort by version.
	source := fstest.MapFS{
		"002_add_color.sql": {Data: []byte(`ALTER TABLE widgets ADD COLUMN color TEXT;`)},
		"001_widgets.sql":   {Data: []byte(`CREATE TABLE widgets (id INTEGER PRIMARY KEY);`)},
	}

	migrator := NewMigrator(db, source, zap.NewNop())
	require.NoError(t, migrator.Run())

	_, err := db.Exec("INSERT INTO widgets (id, color) VALUES (1, 'red')")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestMigrator_RunIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	source := fstest.MapFS{
		"001_widgets.sql": {Data: []byte(`CREATE TABLE widgets (id INTEGER PRIMARY KEY);`)},
	}

	migrator := NewMigrator(db, source, zap.NewNop())
	require.NoError(t, migrator.Run())
	// Re-running must skip the already-applied version instead of failing
	// on CREATE TABLE.
	require.NoError(t, migrator.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMigrator_RunRejectsMalformedFilename(t *testing.T) {
	db := newTestDB(t)
	source := fstest.MapFS{
		"schema.sql": {Data: []byte(`CREATE TABLE widgets (id INTEGER PRIMARY KEY);`)},
	}

	migrator := NewMigrator(db, source, zap.NewNop())
	err := migrator.Run()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration filename")
}

func TestMigrator_FailedMigrationIsNotRecorded(t *testing.T) {
	db := newTestDB(t)
	source := fstest.MapFS{
		"001_broken.sql": {Data: []byte(`CREATE TABLE (syntax error;`)},
	}

	migrator := NewMigrator(db, source, zap.NewNop())
	require.Error(t, migrator.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 0, count)
}
