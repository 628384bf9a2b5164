package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ganot/trainlog/internal/config"
	"github.com/ganot/trainlog/internal/domain/activity"
	"github.com/ganot/trainlog/internal/xlsx"
)

func newInitCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [workbook.xlsx]",
		Short: "Create a starter training log workbook",
		Long: `init creates a workbook with one sheet and an empty table whose header
row matches the configured columns. export appends rows below that
header. An existing file is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runInit(*configPath, path)
		},
	}
	return cmd
}

func runInit(configPath, path string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if path == "" {
		path = cfg.Workbook.Path
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	columns, err := cfg.ColumnMap()
	if err != nil {
		return err
	}

	// Header order follows the canonical metric order, not map order.
	headers := make([]string, 0, len(columns))
	for _, field := range activity.Fields() {
		if header, ok := columns[field]; ok {
			headers = append(headers, header)
		}
	}
	if len(headers) == 0 {
		return fmt.Errorf("no columns configured")
	}

	doc := xlsx.New()
	sheet, err := doc.AddSheet(cfg.Workbook.Sheet)
	if err != nil {
		return err
	}
	if _, err := sheet.AddTable(cfg.Workbook.Table, headers, "A1"); err != nil {
		return err
	}
	if err := doc.SaveAs(path); err != nil {
		return err
	}

	fmt.Printf("Created %s with table %s on sheet %s\n", path, cfg.Workbook.Table, cfg.Workbook.Sheet)
	return nil
}
