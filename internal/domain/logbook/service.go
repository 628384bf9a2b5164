// Package logbook drives exports of decoded activities into workbook tables.
// Each activity becomes one appended table row; a batch saves the workbook
// only after every row landed, so a failed batch leaves the file on disk
// untouched.
package logbook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ganot/trainlog/internal/domain/activity"
	"github.com/ganot/trainlog/internal/workbook"
)

// Service handles export business logic.
type Service struct {
	store   workbook.Store
	decoder Decoder
	history ExportLog
	logger  *slog.Logger
}

// NewService creates a new export service. The history ledger may be nil,
// which disables duplicate tracking.
func NewService(store workbook.Store, decoder Decoder, history ExportLog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:   store,
		decoder: decoder,
		history: history,
		logger:  logger,
	}
}

// ExportRequest describes one export batch: which activity files to decode
// and where their rows go.
type ExportRequest struct {
	WorkbookPath string
	SheetName    string
	TableName    string
	Columns      ColumnMap
	Filters      activity.Filters
	Paths        []string

	// Force exports files the history ledger already lists.
	Force bool

	// Progress, when set, is called before each file and once more after
	// the last with done == total.
	Progress func(done, total int, path string)
}

// ExportResult sums up a finished batch.
type ExportResult struct {
	RunID           uuid.UUID
	Appended        int
	Filtered        int
	AlreadyExported int
}

// Export appends one row per activity file to the requested table. Files the
// ledger already lists are skipped, filtered activities are counted and
// skipped, and any other failure aborts the whole batch before the workbook
// is saved.
func (s *Service) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if req.WorkbookPath == "" || req.SheetName == "" || req.TableName == "" {
		return nil, fmt.Errorf("workbook path, sheet name and table name are required")
	}
	if len(req.Columns) == 0 {
		return nil, fmt.Errorf("no columns mapped")
	}

	res := &ExportResult{RunID: uuid.New()}

	paths := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		if s.history != nil && !req.Force {
			seen, err := s.history.Contains(ctx, req.WorkbookPath, req.TableName, p)
			if err != nil {
				return nil, fmt.Errorf("checking export history: %w", err)
			}
			if seen {
				res.AlreadyExported++
				s.logger.Debug("skipping exported file", "file", p)
				continue
			}
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return res, nil
	}

	doc, err := s.store.Open(req.WorkbookPath)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", req.WorkbookPath, err)
	}
	defer doc.Close()

	sheet, err := doc.Sheet(req.SheetName)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", req.SheetName, err)
	}
	table, err := sheet.Table(req.TableName)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", req.TableName, err)
	}

	appender := Appender{}
	var entries []ExportEntry
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.Progress != nil {
			req.Progress(i, len(paths), p)
		}

		rec, warnings, err := s.decoder.DecodeFile(p)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", p, err)
		}
		for _, w := range warnings {
			s.logger.Warn("decode warning", "file", p, "detail", w)
		}

		m := activity.Extract(rec)
		if field, ok := req.Filters.Match(&m); !ok {
			res.Filtered++
			s.logger.Info("activity filtered out", "file", p, "field", string(field))
			continue
		}

		row, err := MapRow(&m, req.Columns)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", p, err)
		}
		if err := appender.Append(sheet, table, row); err != nil {
			return nil, fmt.Errorf("appending %s: %w", p, err)
		}
		res.Appended++
		entries = append(entries, newExportEntry(res.RunID, req, p, &m))
		s.logger.Debug("row appended", "file", p, "table", req.TableName)
	}
	if req.Progress != nil {
		req.Progress(len(paths), len(paths), "")
	}

	if res.Appended == 0 {
		return res, nil
	}
	if err := doc.Save(); err != nil {
		return nil, fmt.Errorf("saving workbook %s: %w", req.WorkbookPath, err)
	}
	s.logger.Info("workbook saved",
		"workbook", req.WorkbookPath,
		"appended", res.Appended,
		"filtered", res.Filtered,
	)

	if s.history != nil {
		if err := s.history.Add(ctx, entries); err != nil {
			// The rows are already on disk; a ledger failure must not
			// turn the batch into an error.
			s.logger.Warn("recording export history", "error", err)
		}
	}
	return res, nil
}

func newExportEntry(runID uuid.UUID, req ExportRequest, path string, m *activity.Metrics) ExportEntry {
	e := ExportEntry{
		RunID:     runID,
		Workbook:  req.WorkbookPath,
		TableName: req.TableName,
		File:      path,
		StartTime: m.StartTime,
	}
	if m.Sport != nil {
		e.Sport = *m.Sport
	}
	return e
}
