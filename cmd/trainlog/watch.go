package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ganot/trainlog/internal/domain/logbook"
	"github.com/ganot/trainlog/internal/vault"
)

func newWatchCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and export new activities as they arrive",
		Long: `watch runs until interrupted. Every activity file that appears in the
directory is exported once its size has settled, so files still being
copied from a device are left alone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runWatch(cmd.Context(), *configPath, dir)
		},
	}
	return cmd
}

func runWatch(ctx context.Context, configPath, dir string) error {
	cfg, logger, closeLog, err := setup(configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	if dir == "" {
		dir = cfg.Vault.Dir
	}
	if dir == "" {
		return fmt.Errorf("no watch directory: pass one or configure vault.dir")
	}

	columns, err := cfg.ColumnMap()
	if err != nil {
		return err
	}
	filters, err := cfg.ActivityFilters()
	if err != nil {
		return err
	}

	svc, closeLedger, err := newExportService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	watcher := vault.NewWatcher(dir, cfg.Vault.Settle(), logger)
	err = watcher.Run(ctx, func(path string) error {
		res, err := svc.Export(ctx, logbook.ExportRequest{
			WorkbookPath: cfg.Workbook.Path,
			SheetName:    cfg.Workbook.Sheet,
			TableName:    cfg.Workbook.Table,
			Columns:      logbook.ColumnMap(columns),
			Filters:      filters,
			Paths:        []string{path},
		})
		if err != nil {
			return err
		}
		if res.Appended > 0 {
			logger.Info("activity exported", "file", path)
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
