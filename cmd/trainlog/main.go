package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ganot/trainlog/internal/config"
	"github.com/ganot/trainlog/internal/domain/logbook"
	"github.com/ganot/trainlog/internal/fitfile"
	"github.com/ganot/trainlog/internal/sqlite"
	"github.com/ganot/trainlog/internal/xlsx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "trainlog: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "trainlog",
		Short: "Export Garmin activities into an Excel training log",
		Long: `trainlog decodes Garmin .fit activity files and appends one row per
activity to a table in an Excel training log, keeping the table's
formatting and formulas intact.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $TRAINLOG_CONFIG_PATH)")

	cmd.AddCommand(
		newInitCmd(&configPath),
		newExportCmd(&configPath),
		newWatchCmd(&configPath),
		newInspectCmd(),
		newHistoryCmd(&configPath),
	)
	return cmd
}

// setup loads the export profile and builds the logger every command shares.
// The returned func closes the log file, if one is open.
func setup(configPath string) (config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger, closeLog := newLogger(cfg.Log.Level)
	return cfg, logger, closeLog, nil
}

func newLogger(level string) (*slog.Logger, func()) {
	logWriter := io.Writer(os.Stderr)
	closeLog := func() {}
	if logPath := os.Getenv("TRAINLOG_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			logWriter = fileWriter
			closeLog = func() { file.Close() }
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
	return logger, closeLog
}

// newExportService wires the store, decoder and optional ledger behind the
// batch service. The returned func closes the ledger database.
func newExportService(cfg config.Config, logger *slog.Logger) (*logbook.Service, func(), error) {
	var history logbook.ExportLog
	closeLedger := func() {}

	if cfg.Ledger.Path != "" {
		if err := ensureDir(cfg.Ledger.Path); err != nil {
			return nil, nil, fmt.Errorf("preparing ledger path: %w", err)
		}
		db, err := sqlite.New(cfg.Ledger.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, nil, err
		}
		history = sqlite.NewExportRepository(db)
		closeLedger = func() { db.Close() }
	}

	svc := logbook.NewService(xlsx.NewStore(), fitfile.NewDecoder(), history, logger)
	return svc, closeLedger, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a single log file and truncates it back to the
// newest keepLogSizeBytes once it grows past maxLogSizeBytes.
type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	if _, err := w.file.Seek(size-keepLogSizeBytes, io.SeekStart); err != nil {
		return err
	}
	n, err := w.file.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
