package logbook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ganot/trainlog/internal/domain/activity"
	"github.com/ganot/trainlog/internal/domain/logbook"
	lbmocks "github.com/ganot/trainlog/internal/domain/logbook/mocks"
	"github.com/ganot/trainlog/internal/workbook"
	wbmocks "github.com/ganot/trainlog/internal/workbook/mocks"
)

type exportEnv struct {
	store   *wbmocks.Store
	doc     *wbmocks.Document
	sheet   *wbmocks.Sheet
	table   *wbmocks.Table
	decoder *lbmocks.Decoder
	history *lbmocks.ExportLog
	svc     *logbook.Service
}

func newExportEnv() *exportEnv {
	env := &exportEnv{
		store:   &wbmocks.Store{},
		doc:     &wbmocks.Document{},
		sheet:   &wbmocks.Sheet{},
		table:   &wbmocks.Table{},
		decoder: &lbmocks.Decoder{},
		history: &lbmocks.ExportLog{},
	}
	env.svc = logbook.NewService(env.store, env.decoder, env.history, nil)
	return env
}

// wireWorkbook stubs the storage path down to an empty header-only table.
func (env *exportEnv) wireWorkbook() {
	env.store.On("Open", "training.xlsx").Return(env.doc, nil)
	env.doc.On("Sheet", "Training Log").Return(env.sheet, nil)
	env.doc.On("Close").Return(nil)
	env.sheet.On("Table", "Trainings").Return(env.table, nil)
	env.table.On("HasTotalsRow").Return(false)
	env.table.On("Columns").Return([]string{"Date", "Sport", "Workout", "Distance", "Load"})
	env.table.On("Range").Return(workbook.Range{MinCol: 1, MinRow: 1, MaxCol: 5, MaxRow: 1})
	env.table.On("SetRange", mock.Anything).Return(nil)
	env.sheet.On("Value", mock.Anything, mock.Anything).Return(nil)
	env.sheet.On("SetValue", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func exportRequest(paths ...string) logbook.ExportRequest {
	return logbook.ExportRequest{
		WorkbookPath: "training.xlsx",
		SheetName:    "Training Log",
		TableName:    "Trainings",
		Columns: logbook.ColumnMap{
			activity.FieldStartTime: "Date",
			activity.FieldSport:     "Sport",
			activity.FieldDistance:  "Distance",
		},
		Paths: paths,
	}
}

func sessionRecord(sport string, start time.Time) *activity.Record {
	return &activity.Record{Messages: []activity.Message{
		{Name: "session", Fields: map[string]any{
			"sport":          sport,
			"start_time":     start,
			"total_distance": 12500.0,
		}},
	}}
}

func TestExport_AppendsAndSaves(t *testing.T) {
	env := newExportEnv()
	env.wireWorkbook()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	env.history.On("Contains", mock.Anything, "training.xlsx", "Trainings", "a.fit").Return(false, nil)
	env.history.On("Contains", mock.Anything, "training.xlsx", "Trainings", "b.fit").Return(false, nil)
	env.decoder.On("DecodeFile", "a.fit").Return(sessionRecord("running", start), nil, nil)
	env.decoder.On("DecodeFile", "b.fit").
		Return(sessionRecord("cycling", start.Add(24*time.Hour)), []string{"file checksum mismatch"}, nil)
	env.doc.On("Save").Return(nil)

	var recorded []logbook.ExportEntry
	env.history.On("Add", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = args.Get(1).([]logbook.ExportEntry)
	}).Return(nil)

	var progress []string
	req := exportRequest("a.fit", "b.fit")
	req.Progress = func(done, total int, path string) {
		require.Equal(t, 2, total)
		progress = append(progress, path)
	}

	res, err := env.svc.Export(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, res.Appended)
	require.Equal(t, 0, res.Filtered)
	require.Equal(t, 0, res.AlreadyExported)
	require.NotEqual(t, uuid.Nil, res.RunID)

	env.doc.AssertNumberOfCalls(t, "Save", 1)
	env.doc.AssertNumberOfCalls(t, "Close", 1)

	require.Len(t, recorded, 2)
	require.Equal(t, res.RunID, recorded[0].RunID)
	require.Equal(t, "training.xlsx", recorded[0].Workbook)
	require.Equal(t, "Trainings", recorded[0].TableName)
	require.Equal(t, "a.fit", recorded[0].File)
	require.Equal(t, "running", recorded[0].Sport)
	require.NotNil(t, recorded[0].StartTime)
	require.True(t, recorded[0].StartTime.Equal(workbook.NaiveTime(start.In(activity.CET))))
	require.Equal(t, "b.fit", recorded[1].File)

	require.Equal(t, []string{"a.fit", "b.fit", ""}, progress)
}

func TestExport_SkipsAlreadyExported(t *testing.T) {
	env := newExportEnv()
	env.history.On("Contains", mock.Anything, "training.xlsx", "Trainings", "a.fit").Return(true, nil)

	res, err := env.svc.Export(context.Background(), exportRequest("a.fit"))
	require.NoError(t, err)
	require.Equal(t, 1, res.AlreadyExported)
	require.Equal(t, 0, res.Appended)

	// Nothing left to do, so the workbook was never opened.
	env.store.AssertNotCalled(t, "Open", mock.Anything)
	env.history.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestExport_ForceIgnoresLedger(t *testing.T) {
	env := newExportEnv()
	env.wireWorkbook()
	env.decoder.On("DecodeFile", "a.fit").
		Return(sessionRecord("running", time.Now().UTC()), nil, nil)
	env.doc.On("Save").Return(nil)
	env.history.On("Add", mock.Anything, mock.Anything).Return(nil)

	req := exportRequest("a.fit")
	req.Force = true
	res, err := env.svc.Export(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, res.Appended)
	env.history.AssertNotCalled(t, "Contains", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExport_FilteredActivitiesDoNotSave(t *testing.T) {
	env := newExportEnv()
	env.wireWorkbook()
	env.history.On("Contains", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	env.decoder.On("DecodeFile", "a.fit").
		Return(sessionRecord("cycling", time.Now().UTC()), nil, nil)

	req := exportRequest("a.fit")
	req.Filters = activity.Filters{activity.FieldSport: activity.Equals("running")}

	res, err := env.svc.Export(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, res.Filtered)
	require.Equal(t, 0, res.Appended)

	env.doc.AssertNotCalled(t, "Save")
	env.doc.AssertNumberOfCalls(t, "Close", 1)
	env.history.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestExport_DecodeFailureAbortsBatch(t *testing.T) {
	env := newExportEnv()
	env.wireWorkbook()
	env.history.On("Contains", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	env.decoder.On("DecodeFile", "a.fit").
		Return(sessionRecord("running", time.Now().UTC()), nil, nil)
	env.decoder.On("DecodeFile", "b.fit").Return(nil, nil, errors.New("corrupt header"))

	_, err := env.svc.Export(context.Background(), exportRequest("a.fit", "b.fit"))
	require.ErrorContains(t, err, "decoding b.fit")

	// The first row was appended in memory, but the batch never saved.
	env.doc.AssertNotCalled(t, "Save")
	env.doc.AssertNumberOfCalls(t, "Close", 1)
	env.history.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestExport_MissingTargets(t *testing.T) {
	t.Run("sheet", func(t *testing.T) {
		env := newExportEnv()
		env.history.On("Contains", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		env.store.On("Open", "training.xlsx").Return(env.doc, nil)
		env.doc.On("Sheet", "Training Log").Return(nil, workbook.ErrSheetNotFound)
		env.doc.On("Close").Return(nil)

		_, err := env.svc.Export(context.Background(), exportRequest("a.fit"))
		require.ErrorIs(t, err, workbook.ErrSheetNotFound)
		env.doc.AssertNumberOfCalls(t, "Close", 1)
	})

	t.Run("table", func(t *testing.T) {
		env := newExportEnv()
		env.history.On("Contains", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		env.store.On("Open", "training.xlsx").Return(env.doc, nil)
		env.doc.On("Sheet", "Training Log").Return(env.sheet, nil)
		env.doc.On("Close").Return(nil)
		env.sheet.On("Table", "Trainings").Return(nil, workbook.ErrTableNotFound)

		_, err := env.svc.Export(context.Background(), exportRequest("a.fit"))
		require.ErrorIs(t, err, workbook.ErrTableNotFound)
	})
}

func TestExport_LedgerWriteFailureIsNotFatal(t *testing.T) {
	env := newExportEnv()
	env.wireWorkbook()
	env.history.On("Contains", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	env.decoder.On("DecodeFile", "a.fit").
		Return(sessionRecord("running", time.Now().UTC()), nil, nil)
	env.doc.On("Save").Return(nil)
	env.history.On("Add", mock.Anything, mock.Anything).Return(errors.New("ledger locked"))

	res, err := env.svc.Export(context.Background(), exportRequest("a.fit"))
	require.NoError(t, err)
	require.Equal(t, 1, res.Appended)
}

func TestExport_CancelledContext(t *testing.T) {
	env := newExportEnv()
	env.wireWorkbook()
	env.history.On("Contains", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.Export(ctx, exportRequest("a.fit"))
	require.ErrorIs(t, err, context.Canceled)
	env.doc.AssertNumberOfCalls(t, "Close", 1)
}

func TestExport_RequestValidation(t *testing.T) {
	env := newExportEnv()

	req := exportRequest("a.fit")
	req.WorkbookPath = ""
	_, err := env.svc.Export(context.Background(), req)
	require.Error(t, err)

	req = exportRequest("a.fit")
	req.Columns = nil
	_, err = env.svc.Export(context.Background(), req)
	require.ErrorContains(t, err, "no columns mapped")
}
