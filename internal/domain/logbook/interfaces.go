package logbook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ganot/trainlog/internal/domain/activity"
)

// Decoder turns an activity file on disk into decoded messages. Warnings
// report recoverable oddities in the file and never abort an export.
type Decoder interface {
	DecodeFile(path string) (rec *activity.Record, warnings []string, err error)
}

// ExportEntry is one activity file that landed in a workbook table.
type ExportEntry struct {
	ID         int64
	RunID      uuid.UUID
	Workbook   string
	TableName  string
	File       string
	Sport      string
	StartTime  *time.Time
	ExportedAt time.Time
}

// ExportLog remembers which files already landed in which table, so repeated
// runs over the same directory skip them.
type ExportLog interface {
	Contains(ctx context.Context, workbook, table, file string) (bool, error)
	Add(ctx context.Context, entries []ExportEntry) error
	List(ctx context.Context, workbook string, limit int) ([]ExportEntry, error)
}
