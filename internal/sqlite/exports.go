package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ganot/trainlog/internal/domain/logbook"
)

// ExportRepository implements logbook.ExportLog for SQLite
type ExportRepository struct {
	db *DB
}

// NewExportRepository creates a new ExportRepository
func NewExportRepository(db *DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Contains reports whether the file already landed in the given table
func (r *ExportRepository) Contains(ctx context.Context, workbook, table, file string) (bool, error) {
	query := `SELECT COUNT(*) FROM exports WHERE workbook = ? AND table_name = ? AND file = ?`

	var count int
	if err := r.db.QueryRowContext(ctx, query, workbook, table, file).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check export: %w", err)
	}
	return count > 0, nil
}

// Add records a batch of exported files. Re-exporting a file refreshes its
// existing row instead of inserting a second one.
func (r *ExportRepository) Add(ctx context.Context, entries []logbook.ExportEntry) error {
	if len(entries) == 0 {
		return nil
	}

	insert := `
		INSERT INTO exports (run_id, workbook, table_name, file, sport, start_time, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	refresh := `
		UPDATE exports SET run_id = ?, sport = ?, start_time = ?, exported_at = ?
		WHERE workbook = ? AND table_name = ? AND file = ?
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, e := range entries {
		exportedAt := e.ExportedAt
		if exportedAt.IsZero() {
			exportedAt = now
		}
		var startTime any
		if e.StartTime != nil {
			startTime = e.StartTime.UTC()
		}

		_, err := tx.ExecContext(ctx, insert,
			e.RunID.String(), e.Workbook, e.TableName, e.File, e.Sport, startTime, exportedAt)
		if isUniqueViolation(err) {
			_, err = tx.ExecContext(ctx, refresh,
				e.RunID.String(), e.Sport, startTime, exportedAt, e.Workbook, e.TableName, e.File)
		}
		if err != nil {
			return fmt.Errorf("failed to record export of %s: %w", e.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit exports: %w", err)
	}
	return nil
}

// List returns ledger entries, newest first. An empty workbook matches all
// workbooks; a limit of 0 means no limit.
func (r *ExportRepository) List(ctx context.Context, workbook string, limit int) ([]logbook.ExportEntry, error) {
	query := `
		SELECT id, run_id, workbook, table_name, file, sport, start_time, exported_at
		FROM exports
	`

	args := []any{}
	if workbook != "" {
		query += " WHERE workbook = ?"
		args = append(args, workbook)
	}
	query += " ORDER BY exported_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	var entries []logbook.ExportEntry
	for rows.Next() {
		var entry logbook.ExportEntry
		var runID string
		var startTime sql.NullTime
		if err := rows.Scan(
			&entry.ID,
			&runID,
			&entry.Workbook,
			&entry.TableName,
			&entry.File,
			&entry.Sport,
			&startTime,
			&entry.ExportedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan export entry: %w", err)
		}
		if entry.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("failed to parse run id %q: %w", runID, err)
		}
		if startTime.Valid {
			t := startTime.Time
			entry.StartTime = &t
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export rows: %w", err)
	}

	return entries, nil
}
