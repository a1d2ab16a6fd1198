// Package store is the persistent state of the resident: entries, the
// singleton memory record, the activity log, admin news, custom pages and
// visitor rate limits, all in one SQLite file in WAL mode.
//
// Every exported operation is its own atomic unit. No transaction spans
// more than one call.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store implements the persistent store on SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex // serializes read-modify-write operations
	path   string
	driver string

	clockMu sync.RWMutex
	now     func() time.Time
}

// Open initializes the SQLite database at path using driver ("sqlite" for
// the pure-Go engine, "sqlite3" for the cgo one).
func Open(path, driver string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if driver == "" {
		driver = "sqlite"
	}
	logging.Store("Opening store at %s (driver=%s)", path, driver)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path, driver: driver, now: time.Now}
	if err := s.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Store ready (schema v%d)", GetSchemaVersion(db))
	return s, nil
}

// SetClock replaces the time source used for generated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.now = now
}

func (s *Store) clock() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.now().UTC()
}

// Close releases the database.
func (s *Store) Close() error {
	logging.StoreDebug("Closing store at %s", s.path)
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks that the database answers.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			section TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			mood TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			inspired_by TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_section_created ON entries(section, created_at)`,

		`CREATE TABLE IF NOT EXISTS memory (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_wake_time TEXT NOT NULL,
			visitors_read TEXT NOT NULL DEFAULT '[]',
			actions_taken TEXT NOT NULL DEFAULT '[]',
			mood TEXT NOT NULL DEFAULT '',
			plans TEXT NOT NULL DEFAULT '[]',
			updated_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_kind ON activity(kind)`,

		`CREATE TABLE IF NOT EXISTS news (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			read_by_agent INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			read_at TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS pages (
			slug TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS rate_limits (
			fingerprint TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0,
			window_start TEXT NOT NULL,
			blocked INTEGER NOT NULL DEFAULT 0,
			blocked_reason TEXT NOT NULL DEFAULT '',
			blocked_at TEXT
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
