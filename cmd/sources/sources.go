// Package sources implements the sources command for inspecting and
// validating the source registry.
package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/eventcrawl/cmd/common"
	"github.com/jonesrussell/eventcrawl/internal/sources"
)

// validationReportRow is the JSON row shape emitted by sources validate.
type validationReportRow struct {
	SourceID string `json:"source_id"`
	Status   string `json:"status"`
	Detail   string `json:"detail"`
}

// Command returns the sources command group for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the source registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(listCommand())
	cmd.AddCommand(validateCommand())
	return cmd
}

// listCommand renders the enabled sources as a table.
func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the enabled sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			loaded, err := sources.LoadSources(deps.Config.SourcesCSV)
			if err != nil {
				if errors.Is(err, sources.ErrNoSources) {
					fmt.Fprintln(os.Stdout, "No sources found. Run 'eventcrawl seed-sources' to add demo rows.")
					return nil
				}
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Source ID", "Type", "Base URL", "Country", "Freq", "Max QPS", "Concurrency"})
			for _, source := range loaded {
				t.AppendRow(table.Row{
					source.SourceID,
					source.Type,
					source.BaseURL,
					source.Country,
					source.CrawlFreq,
					strconv.FormatFloat(source.MaxQPS, 'f', -1, 64),
					source.Concurrency,
				})
			}
			t.Render()
			return nil
		},
	}
}

// validateCommand checks every registry row and reports per-row results. A
// failing row makes the command exit non-zero.
func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the sources CSV and associated rule files",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			results, err := sources.ValidateSources(deps.Config.SourcesCSV)
			if err != nil {
				return err
			}

			report := make([]validationReportRow, 0, len(results))
			failed := false
			for _, result := range results {
				row := validationReportRow{SourceID: result.SourceID, Status: "OK"}
				switch {
				case result.Detail == sources.DetailDisabled:
					row.Status = "DISABLED"
					row.Detail = result.Detail
				case !result.OK:
					row.Status = "FAIL"
					row.Detail = result.Detail
					failed = true
				}
				report = append(report, row)
			}

			output, marshalErr := json.MarshalIndent(report, "", "  ")
			if marshalErr != nil {
				return fmt.Errorf("encode validation report: %w", marshalErr)
			}
			fmt.Fprintln(os.Stdout, string(output))

			if failed {
				return errors.New("source registry validation failed")
			}
			return nil
		},
	}
}
