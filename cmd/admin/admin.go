// Package admin implements the administrative commands: status, quarantine
// inspection and per-URL source explanation.
package admin

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/eventcrawl/cmd/common"
	"github.com/jonesrussell/eventcrawl/internal/admin"
)

// defaultLookbackDays bounds the inspect-rejects window.
const defaultLookbackDays = 7

// Command returns the admin command group for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative views over runs, rejects and sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(statusCommand())
	cmd.AddCommand(rejectsCommand())
	cmd.AddCommand(explainCommand())
	return cmd
}

// statusCommand renders per-source statistics from the newest manifests.
func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-source statistics from recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			rows, err := admin.SourceStatus(deps.Config.SourcesCSV, deps.Config.Scheduler.RunManifestDir)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Source ID", "Rows New", "Rows Updated", "Rejects", "Last Run"})
			for _, row := range rows {
				lastRun := row.LastRun
				if lastRun == "" {
					lastRun = "-"
				}
				t.AppendRow(table.Row{row.SourceID, row.RowsNew, row.RowsUpdated, row.Rejects, lastRun})
			}
			t.Render()
			return nil
		},
	}
}

// rejectsCommand summarises quarantine reasons within a lookback window.
func rejectsCommand() *cobra.Command {
	var (
		sourceID     string
		lookbackDays int
	)

	cmd := &cobra.Command{
		Use:   "inspect-rejects",
		Short: "Summarise quarantine reasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			reasons, err := admin.RejectSummary(deps.Config.App.QuarantineDir, sourceID, lookbackDays)
			if err != nil {
				return err
			}
			output, marshalErr := json.MarshalIndent(reasons, "", "  ")
			if marshalErr != nil {
				return fmt.Errorf("encode reject summary: %w", marshalErr)
			}
			fmt.Fprintln(os.Stdout, string(output))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceID, "source-id", "", "filter rejects to one source")
	cmd.Flags().IntVar(&lookbackDays, "last", defaultLookbackDays, "lookback window in days")
	return cmd
}

// explainCommand reports which source configuration governs a URL.
func explainCommand() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Explain the fetch configuration for a URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			explanation, err := admin.Explain(deps.Config.SourcesCSV, url)
			if err != nil {
				return err
			}
			output, marshalErr := json.MarshalIndent(explanation, "", "  ")
			if marshalErr != nil {
				return fmt.Errorf("encode explanation: %w", marshalErr)
			}
			fmt.Fprintln(os.Stdout, string(output))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "URL to explain")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
