package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// migration is one versioned schema change, parsed from a file named
// NNN_description.sql.
type migration struct {
	version int
	name    string
	sql     string
}

// Migrator applies pending schema migrations from an embedded filesystem.
// Applied versions are tracked in schema_migrations, so Run is safe to call
// on every startup.
type Migrator struct {
	db     *DB
	source fs.FS
	logger *zap.Logger
}

// NewMigrator creates a Migrator reading .sql files from source.
func NewMigrator(db *DB, source fs.FS, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		source: source,
		logger: logger,
	}
}

// Run applies all migrations not yet recorded in schema_migrations, in
// version order. Each migration runs in its own transaction together with
// the row that records it.
func (m *Migrator) Run() error {
	if err := m.ensureVersionTable(); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	migrations, err := m.loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	pending := 0
	for _, mig := range migrations {
		if applied[mig.version] {
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", mig.version),
			zap.String("name", mig.name))

		if err := m.apply(mig); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", mig.version, mig.name, err)
		}
		pending++
	}

	m.logger.Info("Schema up to date", zap.Int("applied", pending))
	return nil
}

func (m *Migrator) ensureVersionTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// loadMigrations reads every .sql file at the root of the source filesystem
// and sorts the result by version.
func (m *Migrator) loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		mig, err := parseMigrationName(entry.Name())
		if err != nil {
			return nil, err
		}

		content, err := fs.ReadFile(m.source, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}
		mig.sql = string(content)

		migrations = append(migrations, mig)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})
	return migrations, nil
}

func parseMigrationName(filename string) (migration, error) {
	base := strings.TrimSuffix(filename, ".sql")
	prefix, name, ok := strings.Cut(base, "_")
	if !ok {
		return migration{}, fmt.Errorf("invalid migration filename %q, want NNN_description.sql", filename)
	}

	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return migration{}, fmt.Errorf("invalid migration filename %q, want NNN_description.sql", filename)
	}

	return migration{version: version, name: name}, nil
}

func (m *Migrator) apply(mig migration) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(mig.sql); err != nil {
			return err
		}

		_, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			mig.version,
			mig.name,
		)
		return err
	})
}
