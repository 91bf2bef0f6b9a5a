package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a single schema migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations are embedded rather than loaded from disk so the binary is
// self-contained. Append only; never edit an applied version.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_location_pings",
		SQL: `
			CREATE TABLE IF NOT EXISTS location_pings (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				device_id TEXT NOT NULL,
				user_id TEXT,
				timestamp_ms INTEGER NOT NULL,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				accuracy_m REAL,
				speed_mps REAL,
				heading_deg REAL,
				battery REAL,
				provider TEXT,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_pings_device_time
				ON location_pings(device_id, timestamp_ms);
		`,
	},
	{
		Version: 2,
		Name:    "create_dwell_sessions",
		SQL: `
			CREATE TABLE IF NOT EXISTS dwell_sessions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				session_key TEXT NOT NULL UNIQUE,
				device_id TEXT NOT NULL,
				user_id TEXT,
				cluster_id TEXT NOT NULL,
				centroid_lat REAL NOT NULL,
				centroid_lon REAL NOT NULL,
				start_time_ms INTEGER NOT NULL,
				end_time_ms INTEGER NOT NULL,
				duration_s INTEGER NOT NULL,
				points_count INTEGER NOT NULL,
				max_gap_ms INTEGER NOT NULL DEFAULT 0,
				accuracy_avg REAL NOT NULL DEFAULT 0,
				confidence_score REAL NOT NULL DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_device_time
				ON dwell_sessions(device_id, start_time_ms);
		`,
	},
	{
		Version: 3,
		Name:    "create_daily_rollups",
		SQL: `
			CREATE TABLE IF NOT EXISTS daily_rollups (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				device_id TEXT NOT NULL,
				local_day TEXT NOT NULL,
				cluster_id TEXT NOT NULL,
				total_dwell_s INTEGER NOT NULL DEFAULT 0,
				visit_count INTEGER NOT NULL DEFAULT 0,
				avg_confidence REAL NOT NULL DEFAULT 0,
				first_visit_ms INTEGER NOT NULL DEFAULT 0,
				last_visit_ms INTEGER NOT NULL DEFAULT 0,
				centroid_lat REAL NOT NULL DEFAULT 0,
				centroid_lon REAL NOT NULL DEFAULT 0,
				UNIQUE(device_id, local_day, cluster_id)
			);
		`,
	},
	{
		Version: 4,
		Name:    "create_processing_state",
		SQL: `
			CREATE TABLE IF NOT EXISTS processing_state (
				device_id TEXT PRIMARY KEY,
				last_processed_ms INTEGER NOT NULL DEFAULT 0,
				last_cluster_id TEXT,
				open_session_id INTEGER,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		Version: 5,
		Name:    "create_dedup_keys",
		SQL: `
			CREATE TABLE IF NOT EXISTS dedup_keys (
				key TEXT PRIMARY KEY,
				expires_at_ms INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_dedup_expires ON dedup_keys(expires_at_ms);
		`,
	},
}

// RunMigrations applies all pending migrations in version order
func RunMigrations(db *sql.DB) error {
	if err := initMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}

	log.Println("All migrations applied successfully")
	return nil
}

func initMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func applyMigration(db *sql.DB, m Migration) error {
	err := TransactionOn(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Applied migration %d: %s", m.Version, m.Name)
	return nil
}
