// Package crawl implements the crawl command: it plans jobs from the source
// registry and executes them through the orchestrator.
package crawl

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/eventcrawl/cmd/common"
	"github.com/jonesrussell/eventcrawl/internal/crawler"
	"github.com/jonesrussell/eventcrawl/internal/sources"
)

// Default crawl flag values.
const (
	defaultLimit       = 100
	defaultConcurrency = 3
	defaultQPS         = 2.0
	defaultTimeoutSecs = 30
)

// Command returns the crawl command for use in the root command.
func Command() *cobra.Command {
	var (
		entityType  string
		limit       int
		sourceID    string
		concurrency int
		qps         float64
		timeoutSecs int
		since       string
		until       string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Execute a crawl run",
		Long: `Plan jobs from the source registry and execute them: fetch pages,
extract entities, validate them and persist accepted rows to the silver and
gold tiers. With --dry-run the planned jobs are printed as JSON instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			opts := crawler.RunOptions{
				EntityType:  entityType,
				Limit:       limit,
				SourceID:    sourceID,
				Concurrency: concurrency,
				QPS:         qps,
				Timeout:     time.Duration(timeoutSecs) * time.Second,
				Since:       since,
				Until:       until,
			}
			c := crawler.New(deps.Config, deps.Logger)

			if dryRun {
				planned, planErr := c.Plan(opts)
				if planErr != nil {
					return planErr
				}
				output, marshalErr := json.MarshalIndent(planned, "", "  ")
				if marshalErr != nil {
					return fmt.Errorf("encode planned jobs: %w", marshalErr)
				}
				fmt.Fprintln(os.Stdout, string(output))
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if runErr := c.Run(ctx, opts); runErr != nil {
				if errors.Is(runErr, sources.ErrNoSources) {
					deps.Logger.Info("No sources found in the registry. Run 'eventcrawl seed-sources' to add demo rows.")
					return nil
				}
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "events", "entity type to crawl (events|festivals|sports|all)")
	cmd.Flags().IntVar(&limit, "limit", defaultLimit, "maximum number of jobs to run")
	cmd.Flags().StringVar(&sourceID, "source-id", sources.AllSources, "filter to a particular source ID")
	cmd.Flags().IntVar(&concurrency, "concurrency", defaultConcurrency, "maximum concurrent jobs")
	cmd.Flags().Float64Var(&qps, "qps", defaultQPS, "global requests per second budget")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", defaultTimeoutSecs, "per-request timeout in seconds")
	cmd.Flags().StringVar(&since, "since", "", "optional lower bound ISO date")
	cmd.Flags().StringVar(&until, "until", "", "optional upper bound ISO date")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print planned jobs without executing")

	return cmd
}
