package store

import (
	"database/sql"
	"fmt"
	"time"

	"catmig/internal/logging"
)

// Schema versions:
// v1: instances, parts, hom_values, attr_values, migration_runs
// v2: migration_runs gains solver and duration_ms
const CurrentSchemaVersion = 2

// Migration adds a column to an existing table.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations handle files whose tables predate newer columns.
var pendingMigrations = []Migration{
	{"migration_runs", "solver", "TEXT DEFAULT ''"},
	{"migration_runs", "duration_ms", "INTEGER DEFAULT 0"},
}

// RunMigrations applies column migrations to an existing database.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	applied, skipped := 0, 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			logging.StoreDebug("Table missing, skipping migration: %s.%s", m.Table, m.Column)
			skipped++
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			skipped++
			continue
		}

		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		logging.StoreDebug("Executing migration: %s", query)
		if _, err := db.Exec(query); err != nil {
			logging.StoreError("Migration failed: %s.%s: %v", m.Table, m.Column, err)
			return fmt.Errorf("failed to add %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("Migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	logging.StoreDebug("Schema migrations complete: applied=%d, skipped=%d", applied, skipped)
	return nil
}

// columnExists reports whether table has column. A missing table has no
// columns.
func columnExists(db *sql.DB, table, column string) bool {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	if err != nil {
		logging.StoreDebug("cannot inspect %s: %v", table, err)
		return false
	}
	return n > 0
}

func tableExists(db *sql.DB, table string) bool {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		logging.StoreDebug("cannot look up table %s: %v", table, err)
		return false
	}
	return n > 0
}

// GetSchemaVersion returns the most recently recorded schema version, or 0
// for a file that has never recorded one.
func GetSchemaVersion(db *sql.DB) int {
	if !tableExists(db, "schema_versions") {
		return 0
	}
	var version int
	err := db.QueryRow("SELECT version FROM schema_versions ORDER BY id DESC LIMIT 1").Scan(&version)
	if err != nil {
		logging.StoreDebug("no schema version recorded: %v", err)
		return 0
	}
	return version
}

// SetSchemaVersion appends version to the file's version history.
func SetSchemaVersion(db *sql.DB, version int) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		version    INTEGER NOT NULL,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_versions: %w", err)
	}
	if _, err := db.Exec("INSERT INTO schema_versions (version, applied_at) VALUES (?, ?)", version, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", version, err)
	}
	logging.Store("schema version %d", version)
	return nil
}
