// Package crawler runs crawl jobs end to end: planning, queueing, fetching,
// parsing, normalisation, validation, deduplication and tiered persistence.
package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/config"
	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/fetcher"
	"github.com/jonesrussell/eventcrawl/internal/jobs"
	"github.com/jonesrussell/eventcrawl/internal/logger"
	"github.com/jonesrussell/eventcrawl/internal/metrics"
	"github.com/jonesrussell/eventcrawl/internal/quality"
	"github.com/jonesrussell/eventcrawl/internal/schema"
	"github.com/jonesrussell/eventcrawl/internal/sources"
	"github.com/jonesrussell/eventcrawl/internal/storage"
)

// dequeueWait bounds how long a worker blocks on an empty queue before
// re-checking whether the run is finished.
const dequeueWait = 100 * time.Millisecond

// runIDTimeFormat stamps generated run ids.
const runIDTimeFormat = "20060102T150405"

// conditionalCacheFile names the validator cache inside the bronze tier.
const conditionalCacheFile = "conditional.json"

// RunOptions carries the per-run settings from the CLI or scheduler.
type RunOptions struct {
	EntityType  string
	Limit       int
	SourceID    string
	Concurrency int
	QPS         float64
	Timeout     time.Duration
	// Since and Until are accepted at the CLI but not yet applied during
	// planning.
	Since string
	Until string
	RunID string
}

// PlannedJob is the dry-run projection of one planned job.
type PlannedJob struct {
	JobID        string `json:"job_id"`
	SourceID     string `json:"source_id"`
	Type         string `json:"type"`
	URL          string `json:"url"`
	CSSRulesPath string `json:"css_rules_path"`
}

// Crawler coordinates crawl runs over the configured source registry.
type Crawler struct {
	cfg *config.Config
	log logger.Interface
}

// New creates a Crawler.
func New(cfg *config.Config, log logger.Interface) *Crawler {
	return &Crawler{cfg: cfg, log: log}
}

// loadFilteredSources loads the registry and applies the source id filter.
func (c *Crawler) loadFilteredSources(sourceID string) ([]*sources.Source, error) {
	loaded, err := sources.LoadSources(c.cfg.SourcesCSV)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	if sourceID == sources.AllSources {
		return loaded, nil
	}
	var filtered []*sources.Source
	for _, source := range loaded {
		if source.SourceID == sourceID {
			filtered = append(filtered, source)
		}
	}
	return filtered, nil
}

// Plan returns the jobs a run with these options would execute, in the
// dry-run projection.
func (c *Crawler) Plan(opts RunOptions) ([]PlannedJob, error) {
	filtered, err := c.loadFilteredSources(opts.SourceID)
	if err != nil {
		return nil, err
	}
	planned := jobs.PlanJobs(filtered, opts.EntityType, opts.Limit)

	summary := make([]PlannedJob, 0, len(planned))
	for _, job := range planned {
		summary = append(summary, PlannedJob{
			JobID:        job.JobID,
			SourceID:     job.SourceID,
			Type:         job.EntityType,
			URL:          job.URL,
			CSSRulesPath: job.Metadata.CSSRulesPath,
		})
	}
	return summary, nil
}

// Run executes a full crawl: plans jobs, works the queue with the requested
// concurrency, then persists results and writes the run manifest.
func (c *Crawler) Run(ctx context.Context, opts RunOptions) error {
	filtered, err := c.loadFilteredSources(opts.SourceID)
	if err != nil {
		return err
	}
	if len(filtered) == 0 {
		c.log.Warn("no matching sources found", "source_id", opts.SourceID)
		return nil
	}

	planned := jobs.PlanJobs(filtered, opts.EntityType, opts.Limit)
	if len(planned) == 0 {
		c.log.Warn("no jobs to execute after filtering", "type", opts.EntityType)
		return nil
	}

	layout, err := storage.NewDataLayout(
		c.cfg.App.BronzeDir,
		c.cfg.App.SilverDir,
		c.cfg.App.GoldDir,
		c.cfg.Scheduler.RunManifestDir,
		c.cfg.Scheduler.JobCheckpointDir,
		c.cfg.App.MetricsDir,
	)
	if err != nil {
		return err
	}

	runID := opts.RunID
	if runID == "" {
		runID = time.Now().UTC().Format(runIDTimeFormat)
	}
	log := c.log.WithRunID(runID)

	queue, err := jobs.OpenQueue(filepath.Join(c.cfg.App.QueueDir, fmt.Sprintf("jobs-%s.jsonl", opts.SourceID)))
	if err != nil {
		return err
	}
	if clearErr := queue.Clear(); clearErr != nil {
		return clearErr
	}
	for _, job := range planned {
		if enqueueErr := queue.Enqueue(job); enqueueErr != nil {
			return enqueueErr
		}
	}

	conditionalCache, err := fetcher.OpenConditionalCache(filepath.Join(layout.Bronze, conditionalCacheFile))
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	run := &runState{
		opts:         opts,
		layout:       layout,
		log:          log,
		metrics:      registry,
		schemas:      schema.NewRegistry(c.cfg.SchemasDir),
		checkpoints:  jobs.NewCheckpointer(layout.Checkpoints),
		runID:        runID,
		queue:        queue,
		results:      make(map[string][]domain.Entity),
		resultsIndex: make(map[string]map[string]domain.Entity),
		sourceStats:  make(map[string]*domain.SourceStats),
	}
	run.dedup = quality.NewDeduplicator()
	run.quarantine, err = quality.NewQuarantine(c.cfg.App.QuarantineDir)
	if err != nil {
		return err
	}
	run.fetch = fetcher.New(fetcher.Config{
		Robots:     fetcher.NewRobotsCache(c.cfg.Fetch.UserAgent, fetcher.DefaultRobotsTimeout),
		Cache:      conditionalCache,
		Limiters:   fetcher.NewHostLimiters(opts.QPS),
		Metrics:    registry,
		Logger:     log,
		UserAgent:  c.cfg.Fetch.UserAgent,
		Timeout:    opts.Timeout,
		BronzeRoot: layout.Bronze,
	})

	stopTimer := registry.RecordDuration(metrics.CounterRunDurationMS)
	run.work(ctx, opts.Concurrency)
	stopTimer()

	if persistErr := run.persistResults(); persistErr != nil {
		return persistErr
	}
	if manifestErr := run.writeManifest(); manifestErr != nil {
		return manifestErr
	}
	if exportErr := registry.Export(filepath.Join(layout.Metrics, fmt.Sprintf("run_%s.json", runID)), runID); exportErr != nil {
		return exportErr
	}

	log.Info("crawl run finished",
		"jobs", len(planned),
		"entities_new", registry.Get(metrics.CounterEntitiesNew),
		"entities_updated", registry.Get(metrics.CounterEntitiesUpdated),
	)
	return nil
}

// work drains the queue with the requested number of workers. A worker exits
// once a dequeue window elapses with the queue observed empty.
func (r *runState) work(ctx context.Context, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.workerLoop(ctx)
		}()
	}
	wg.Wait()
}

// workerLoop processes jobs until the queue drains or the context ends.
func (r *runState) workerLoop(ctx context.Context) {
	for {
		job, err := r.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if err == jobs.ErrDequeueTimeout {
				if r.queue.Empty() {
					return
				}
				continue
			}
			return
		}
		r.runJob(ctx, job)
	}
}

// runJob executes one job and applies the retry policy on failure.
func (r *runState) runJob(ctx context.Context, job *domain.Job) {
	defer func() {
		if doneErr := r.queue.TaskDone(); doneErr != nil {
			r.log.Error("queue mirror update failed", "error", doneErr)
		}
	}()

	if err := r.processJob(ctx, job); err != nil {
		job.MarkFailed(err)
		r.log.Error("job failed",
			"job_id", job.JobID,
			"source_id", job.SourceID,
			"attempts", job.Attempts,
			"error", err,
		)
		if job.ShouldRetry() {
			if enqueueErr := r.queue.Enqueue(job); enqueueErr != nil {
				r.log.Error("job re-enqueue failed", "job_id", job.JobID, "error", enqueueErr)
			}
		}
	}
}

// writeManifest records the run's counts, artefact paths, per-source stats
// and metrics snapshot.
func (r *runState) writeManifest() error {
	counts := make(map[string]int, len(r.results))
	for entityType, entities := range r.results {
		counts[entityType] = len(entities)
	}

	manifest := domain.RunManifest{
		RunID:       r.runID,
		Counts:      counts,
		Paths:       r.artifactPaths,
		SourceStats: r.sourceStats,
		Metrics:     r.metrics.Snapshot(),
		ExitCode:    0,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	path := filepath.Join(r.layout.Manifests, fmt.Sprintf("run-%s.json", r.runID))
	if writeErr := os.WriteFile(path, data, 0o644); writeErr != nil {
		return fmt.Errorf("write manifest: %w", writeErr)
	}
	return nil
}

// persistResults promotes each entity type's accepted entities into silver,
// gold and SQLite.
func (r *runState) persistResults() error {
	writer := storage.NewWriter(r.layout)
	r.artifactPaths = make(map[string]map[string]string, len(r.results))
	for entityType, entities := range r.results {
		paths, err := writer.Persist(entityType, entities, r.runID)
		if err != nil {
			return fmt.Errorf("persist %s: %w", entityType, err)
		}
		r.artifactPaths[entityType] = paths
	}
	return nil
}
