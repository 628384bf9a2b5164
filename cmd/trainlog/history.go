package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ganot/trainlog/internal/config"
	"github.com/ganot/trainlog/internal/sqlite"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	var limit int
	var allWorkbooks bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently exported activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), *configPath, limit, allWorkbooks)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many rows")
	cmd.Flags().BoolVar(&allWorkbooks, "all", false, "include every workbook, not just the configured one")
	return cmd
}

func runHistory(ctx context.Context, configPath string, limit int, allWorkbooks bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Ledger.Path == "" {
		return fmt.Errorf("no ledger configured")
	}

	db, err := sqlite.New(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return err
	}

	workbook := cfg.Workbook.Path
	if allWorkbooks {
		workbook = ""
	}

	entries, err := sqlite.NewExportRepository(db).List(ctx, workbook, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No exports recorded")
		return nil
	}

	fmt.Printf("%-16s  %-9s  %-28s  %-19s  %s\n", "EXPORTED", "SPORT", "FILE", "START", "RUN")
	for _, e := range entries {
		start := "-"
		if e.StartTime != nil {
			start = e.StartTime.Format("2006-01-02 15:04:05")
		}
		sport := e.Sport
		if sport == "" {
			sport = "-"
		}
		run := e.RunID.String()[:8]
		exported := e.ExportedAt.Local().Format("2006-01-02 15:04")
		fmt.Printf("%-16s  %-9s  %-28s  %-19s  %s\n", exported, sport, filepath.Base(e.File), start, run)
	}
	return nil
}
