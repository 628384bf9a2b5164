package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A watcher and a manual export may share the ledger.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations applies the schema. It is safe to run on every start.
func (db *DB) RunMigrations() error {
	migration := `
-- Export ledger: one row per activity file that landed in a workbook table
CREATE TABLE IF NOT EXISTS exports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    workbook TEXT NOT NULL,
    table_name TEXT NOT NULL,
    file TEXT NOT NULL,
    sport TEXT NOT NULL DEFAULT '',
    start_time TIMESTAMP,
    exported_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (workbook, table_name, file)
);
CREATE INDEX IF NOT EXISTS idx_exports_workbook ON exports(workbook);
CREATE INDEX IF NOT EXISTS idx_exports_run ON exports(run_id);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
