// Package store persists instances and migration runs in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"catmig/internal/logging"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// LocalStore keeps instances and the run log in a single SQLite file.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore initializes the SQLite database at the given path.
func NewLocalStore(path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to :memory: is a different database
	db.SetMaxOpenConns(1)

	store := &LocalStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Opened store at %s", path)
	return store, nil
}

// initialize creates the required tables and brings older files up to date.
func (s *LocalStore) initialize() error {
	instanceTable := `
	CREATE TABLE IF NOT EXISTS instances (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		schema_name TEXT NOT NULL,
		schema_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_instances_name ON instances(name);
	`

	partTable := `
	CREATE TABLE IF NOT EXISTS parts (
		instance_id TEXT NOT NULL,
		ob TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (instance_id, ob)
	);
	`

	homTable := `
	CREATE TABLE IF NOT EXISTS hom_values (
		instance_id TEXT NOT NULL,
		hom TEXT NOT NULL,
		row INTEGER NOT NULL,
		value INTEGER NOT NULL,
		PRIMARY KEY (instance_id, hom, row)
	);
	`

	attrTable := `
	CREATE TABLE IF NOT EXISTS attr_values (
		instance_id TEXT NOT NULL,
		attr TEXT NOT NULL,
		row INTEGER NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (instance_id, attr, row)
	);
	`

	runTable := `
	CREATE TABLE IF NOT EXISTS migration_runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		source_schema TEXT NOT NULL,
		target_schema TEXT NOT NULL,
		source_instance TEXT DEFAULT '',
		target_instance TEXT DEFAULT '',
		rows INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON migration_runs(created_at);
	`

	for _, table := range []string{instanceTable, partTable, homTable, attrTable, runTable} {
		if _, err := s.db.Exec(table); err != nil {
			logging.StoreError("Failed to create table: %v", err)
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if err := RunMigrations(s.db); err != nil {
		return err
	}
	if GetSchemaVersion(s.db) < CurrentSchemaVersion {
		if err := SetSchemaVersion(s.db, CurrentSchemaVersion); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *LocalStore) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Stats reports row counts per table.
func (s *LocalStore) Stats() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int)
	for _, table := range []string{"instances", "parts", "hom_values", "attr_values", "migration_runs"} {
		var count int
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}
