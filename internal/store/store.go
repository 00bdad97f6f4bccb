package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// migrations upgrade a database from version i+1 to version i+2.
// Version 1 is schema.sql itself.
var migrations []string

// schemaVersion is the user_version a fully migrated database carries.
func schemaVersion() int {
	return 1 + len(migrations)
}

// Store holds the event log of a run.
//
// Thread-safety: the pool is pinned to one connection, so concurrent calls
// are serialized by database/sql. Writes are expected from one goroutine
// (see Recorder).
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens a SQLite database at path and brings its schema up
// to date. Use MemoryPath for a run-scoped database.
//
// Files use WAL journaling; in-memory databases keep SQLite's memory journal.
// Opening an existing file is idempotent. A file written by a newer version
// is rejected.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// One connection: an in-memory database lives and dies with it, and
	// SQLite has a single writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// InMemory reports whether the store vanishes on Close.
func (s *Store) InMemory() bool {
	return s.path == MemoryPath
}

// DB returns the underlying handle. Tests use it to set up states the
// Store API refuses to produce.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection. An in-memory store is discarded.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("connect %s: %w", s.path, err)
	}

	journal := "WAL"
	if s.InMemory() {
		journal = "MEMORY"
	}
	for _, pragma := range []string{
		"journal_mode = " + journal,
		"synchronous = NORMAL",
		"busy_timeout = 5000",
		"foreign_keys = ON",
	} {
		if _, err := s.db.Exec("PRAGMA " + pragma); err != nil {
			return fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return s.migrate()
}

// migrate runs every migration above the stored user_version, then records
// the current version.
func (s *Store) migrate() error {
	version, err := s.userVersion()
	if err != nil {
		return err
	}
	if version > schemaVersion() {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion())
	}

	// A fresh database reports 0 and already has the latest tables.
	if version > 0 {
		for v := version; v < schemaVersion(); v++ {
			if _, err := s.db.Exec(migrations[v-1]); err != nil {
				return fmt.Errorf("migrate schema to version %d: %w", v+1, err)
			}
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion())); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func (s *Store) userVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

// pragma returns the current value of a pragma as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
