package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migrations are applied in order after the base schema; migration i
// brings a database to user_version i+1.
var migrations = []struct {
	name string
	stmt string
}{
	{"index runs by class", `CREATE INDEX IF NOT EXISTS idx_runs_class ON runs(class, seq)`},
	{"index events by class and kind", `CREATE INDEX IF NOT EXISTS idx_events_class_kind ON construction_events(class, kind, seq)`},
	{"backfill class versions", `
		INSERT OR IGNORE INTO class_versions (name, spec_hash, supers, spec)
		SELECT name, spec_hash, supers, spec FROM classes`},
}

// Store persists compiled classes and construction runs in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path, applying pragmas,
// the base schema and any pending migrations. Opening an up-to-date
// database changes nothing.
//
// Connections use WAL journaling, synchronous=NORMAL, a 5s busy timeout
// and enforced foreign keys. A single connection is kept open since
// SQLite serializes writers anyway.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := setup(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func setup(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return migrate(db)
}

// migrate runs every migration past the database's user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		m := migrations[i]
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for tests and ad hoc inspection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// pragma reads a pragma's current value as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
