// Package scheduler drives recurring crawl runs from the configured job
// list, reusing run ids from leftover checkpoints so interrupted runs
// resume instead of starting over.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/eventcrawl/internal/config"
	"github.com/jonesrussell/eventcrawl/internal/crawler"
	"github.com/jonesrussell/eventcrawl/internal/logger"
)

// runIDStampFormat stamps generated run ids to microsecond precision.
const runIDStampFormat = "20060102T150405"

// Scheduler executes the configured crawl jobs on a fixed interval. Cron
// expressions are parsed and their next fire time logged, but the cadence
// itself is the interval: every tick runs every job.
type Scheduler struct {
	cfg     *config.Config
	crawler *crawler.Crawler
	log     logger.Interface
}

// New creates a Scheduler.
func New(cfg *config.Config, c *crawler.Crawler, log logger.Interface) *Scheduler {
	return &Scheduler{cfg: cfg, crawler: c, log: log}
}

// ResolveRunID returns the run id for a source type: the stem of the first
// matching checkpoint file when one is left over, otherwise a fresh
// timestamped id.
func ResolveRunID(sourceType, checkpointDir string) string {
	matches, err := filepath.Glob(filepath.Join(checkpointDir, sourceType+"-*.json"))
	if err == nil && len(matches) > 0 {
		sort.Strings(matches)
		base := filepath.Base(matches[0])
		return strings.TrimSuffix(base, ".json")
	}
	now := time.Now().UTC()
	return fmt.Sprintf("%s-%s%06d", sourceType, now.Format(runIDStampFormat), now.Nanosecond()/1000)
}

// Run executes the scheduler loop. A positive ticks value bounds the number
// of iterations; zero or less runs until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, ticks int, interval time.Duration) error {
	jobs := s.cfg.Scheduler.Jobs
	if len(jobs) == 0 {
		s.log.Warn("scheduler has no configured jobs")
		return nil
	}
	if err := os.MkdirAll(s.cfg.Scheduler.JobCheckpointDir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	for tick := 0; ticks <= 0 || tick < ticks; tick++ {
		for _, job := range jobs {
			if err := s.runJob(ctx, job); err != nil {
				return err
			}
		}
		if ticks > 0 && tick == ticks-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}

// runJob executes one scheduled job through the orchestrator.
func (s *Scheduler) runJob(ctx context.Context, job config.ScheduledJob) error {
	if schedule, err := cron.ParseStandard(job.Cron); err != nil {
		s.log.Warn("invalid cron expression", "source_type", job.SourceType, "cron", job.Cron)
	} else {
		s.log.Info("scheduled job due",
			"source_type", job.SourceType,
			"cron", job.Cron,
			"next", schedule.Next(time.Now()).Format(time.RFC3339),
		)
	}

	runID := ResolveRunID(job.SourceType, s.cfg.Scheduler.JobCheckpointDir)
	opts := crawler.RunOptions{
		EntityType:  job.SourceType,
		Limit:       job.Limit,
		SourceID:    "all",
		Concurrency: s.cfg.Fetch.MaxConcurrency,
		QPS:         s.cfg.Fetch.MaxQPS,
		Timeout:     time.Duration(s.cfg.Fetch.TimeoutSeconds) * time.Second,
		RunID:       runID,
	}
	if err := s.crawler.Run(ctx, opts); err != nil {
		return fmt.Errorf("scheduled run %s: %w", runID, err)
	}
	return nil
}
