package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the SQLite schema for local runs. The postgres flavor lives in
// internal/migrate as goose migrations.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createOrdersQuery := `
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		raw_address TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		registered_address TEXT NOT NULL DEFAULT '',
		declared_km REAL,
		scheduled_at TEXT,
		status TEXT NOT NULL DEFAULT 'awaiting',
		urgency INTEGER NOT NULL DEFAULT 0,
		deadline TEXT,
		note_analyzed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	`

	createAddressesQuery := `
	CREATE TABLE IF NOT EXISTS resolved_addresses (
		order_id TEXT PRIMARY KEY,
		address TEXT NOT NULL DEFAULT '',
		district TEXT NOT NULL DEFAULT '',
		ward TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		distance_km REAL,
		travel_time_min INTEGER,
		overdue INTEGER NOT NULL DEFAULT 0,
		resolved_at TEXT NOT NULL
	);
	`

	createCarriersQuery := `
	CREATE TABLE IF NOT EXISTS carriers (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		name_folded TEXT NOT NULL,
		address TEXT NOT NULL,
		district TEXT NOT NULL DEFAULT '',
		ward TEXT NOT NULL DEFAULT '',
		departure_text TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	);
	`

	createRouteCacheQuery := `
	CREATE TABLE IF NOT EXISTS route_cache (
		destination TEXT PRIMARY KEY,
		distance_km REAL NOT NULL,
		travel_time_min INTEGER NOT NULL,
		computed_at TEXT NOT NULL
	);
	`

	createWatermarksQuery := `
	CREATE TABLE IF NOT EXISTS feed_watermarks (
		source TEXT PRIMARY KEY,
		last_count INTEGER NOT NULL,
		last_hash TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_carriers_name_folded
	ON carriers(name_folded);
	`

	statements := []string{
		createOrdersQuery,
		createAddressesQuery,
		createCarriersQuery,
		createRouteCacheQuery,
		createWatermarksQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
