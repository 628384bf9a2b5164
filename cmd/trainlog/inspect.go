package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ganot/trainlog/internal/fitfile"
	"github.com/ganot/trainlog/internal/fitjson"
)

func newInspectCmd() *cobra.Command {
	var output string
	var msgType string

	cmd := &cobra.Command{
		Use:   "inspect <file.fit>",
		Short: "Decode an activity file and print it as JSON",
		Long: `inspect decodes one activity file and dumps its messages as indented
JSON, grouped by message kind. Decode warnings go to stderr.

Examples:
  trainlog inspect morning-run.fit
  trainlog inspect morning-run.fit --type session
  trainlog inspect morning-run.fit -o morning-run.json.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0], output, msgType)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write JSON to this path instead of stdout (a .zst suffix compresses)")
	cmd.Flags().StringVar(&msgType, "type", "", "dump only messages of this kind (session, record, ...)")
	return cmd
}

func runInspect(path, output, msgType string) error {
	rec, warnings, err := fitfile.NewDecoder().DecodeFile(path)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", filepath.Base(path), w)
	}

	if output != "" {
		if err := fitjson.WriteFile(output, rec, msgType); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", output)
		return nil
	}
	return fitjson.Write(os.Stdout, rec, msgType)
}
