// Package schedule implements the schedule command running the recurring
// crawl loop.
package schedule

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/eventcrawl/cmd/common"
	"github.com/jonesrussell/eventcrawl/internal/crawler"
	"github.com/jonesrussell/eventcrawl/internal/scheduler"
)

// defaultIntervalSecs separates scheduler ticks.
const defaultIntervalSecs = 60

// Command returns the schedule command for use in the root command.
func Command() *cobra.Command {
	var (
		ticks        int
		intervalSecs int
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the scheduler loop",
		Long: `Execute the configured scheduler jobs on a fixed interval. Each tick
runs every configured job through the orchestrator, reusing run ids from
leftover checkpoints so interrupted runs resume.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := crawler.New(deps.Config, deps.Logger)
			loop := scheduler.New(deps.Config, c, deps.Logger)
			return loop.Run(ctx, ticks, time.Duration(intervalSecs)*time.Second)
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 0, "number of iterations to execute (0 runs until interrupted)")
	cmd.Flags().IntVar(&intervalSecs, "interval", defaultIntervalSecs, "seconds between ticks")

	return cmd
}
