package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	logger     *slog.Logger
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "acsqe",
	Short: "Access control and safe query engine for per-organization SQLite datastores.",
	Long:  "acsqe reflects datastore schemas, runs PostgREST-style queries, authorizes raw SQL, and renders schema-change DDL, all gated by a hierarchical permission model.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "format-json", false, "emit machine-readable JSON instead of colorized text")
}

// Execute runs the root command, exiting non-zero on any error including
// authorization denial.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// printJSON pretty-prints v to stdout. Every subcommand's machine-readable
// output goes through this so --format-json stays uniform.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
