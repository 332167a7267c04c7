// Package seed implements the seed-sources command populating the registry
// with demo rows.
package seed

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/eventcrawl/cmd/common"
	"github.com/jonesrussell/eventcrawl/internal/sources"
)

// Command returns the seed-sources command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-sources",
		Short: "Populate the source registry with demo rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			if seedErr := sources.SeedRegistry(deps.Config.SourcesCSV); seedErr != nil {
				return seedErr
			}
			deps.Logger.Info("seeded source registry", "path", deps.Config.SourcesCSV)
			return nil
		},
	}
}
