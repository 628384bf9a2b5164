package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ganot/trainlog/internal/domain/logbook"
	"github.com/ganot/trainlog/internal/vault"
)

func newExportCmd(configPath *string) *cobra.Command {
	var dir string
	var force bool

	cmd := &cobra.Command{
		Use:   "export [file.fit ...]",
		Short: "Append activities to the training log",
		Long: `export decodes the given activity files and appends one row per
activity to the configured table. Without arguments it exports every
activity file found in --dir (or the configured vault directory),
oldest first.

A batch either lands completely or not at all: the workbook on disk is
only rewritten after every row has been placed.

Examples:
  trainlog export 2024-05-01-10-00-00.fit
  trainlog export --dir /mnt/garmin/GARMIN/Activity
  trainlog export --force morning-run.fit`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), *configPath, dir, force, args)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "export every activity file in this directory")
	cmd.Flags().BoolVar(&force, "force", false, "re-export files the ledger already lists")
	return cmd
}

func runExport(ctx context.Context, configPath, dir string, force bool, paths []string) error {
	cfg, logger, closeLog, err := setup(configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	if len(paths) == 0 {
		if dir == "" {
			dir = cfg.Vault.Dir
		}
		if dir == "" {
			return fmt.Errorf("no activity files: pass paths or configure vault.dir")
		}
		paths, err = vault.Scan(dir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Printf("No activity files in %s\n", dir)
			return nil
		}
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

	bar := newProgressBar(len(paths))
	defer bar.Close()

	res, err := svc.Export(ctx, logbook.ExportRequest{
		WorkbookPath: cfg.Workbook.Path,
		SheetName:    cfg.Workbook.Sheet,
		TableName:    cfg.Workbook.Table,
		Columns:      logbook.ColumnMap(columns),
		Filters:      filters,
		Paths:        paths,
		Force:        force,
		Progress:     bar.Update,
	})
	if err != nil {
		return err
	}
	bar.Close()

	fmt.Printf("Appended %d row(s) to %s", res.Appended, cfg.Workbook.Path)
	if res.Filtered > 0 {
		fmt.Printf(", filtered %d", res.Filtered)
	}
	if res.AlreadyExported > 0 {
		fmt.Printf(", already exported %d", res.AlreadyExported)
	}
	fmt.Println()
	return nil
}
