package crawler

import (
	"context"
	"sync"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/fetcher"
	"github.com/jonesrussell/eventcrawl/internal/jobs"
	"github.com/jonesrussell/eventcrawl/internal/logger"
	"github.com/jonesrussell/eventcrawl/internal/metrics"
	"github.com/jonesrussell/eventcrawl/internal/normalize"
	"github.com/jonesrussell/eventcrawl/internal/parser"
	"github.com/jonesrussell/eventcrawl/internal/quality"
	"github.com/jonesrussell/eventcrawl/internal/schema"
	"github.com/jonesrussell/eventcrawl/internal/storage"
)

// runState is the shared state of one crawl run. Workers fetch and parse
// concurrently; mu guards the accounting section where entities enter the
// dedup index, the result sets and the checkpoint file.
type runState struct {
	opts        RunOptions
	layout      *storage.DataLayout
	log         logger.Interface
	metrics     *metrics.Registry
	schemas     *schema.Registry
	checkpoints *jobs.Checkpointer
	dedup       *quality.Deduplicator
	quarantine  *quality.Quarantine
	fetch       *fetcher.Fetcher
	queue       *jobs.Queue
	runID       string

	mu            sync.Mutex
	results       map[string][]domain.Entity
	resultsIndex  map[string]map[string]domain.Entity
	sourceStats   map[string]*domain.SourceStats
	artifactPaths map[string]map[string]string
}

// statsFor returns the per-source stat bucket, creating it on first use.
// Callers must hold mu.
func (r *runState) statsFor(sourceID string) *domain.SourceStats {
	stats, ok := r.sourceStats[sourceID]
	if !ok {
		stats = &domain.SourceStats{}
		r.sourceStats[sourceID] = stats
	}
	return stats
}

// processJob runs one job through fetch, pagination, parse, normalise,
// validate and dedup. A nil error means the job succeeded, including the
// robots-disallowed and content-unchanged cases.
func (r *runState) processJob(ctx context.Context, job *domain.Job) error {
	job.MarkStarted()
	log := r.log.WithJobID(job.JobID).WithSourceID(job.SourceID)

	spec, err := parser.LoadRule(job.Metadata.CSSRulesPath)
	if err != nil {
		return err
	}
	checkpoint := r.checkpoints.Load(r.runID)

	snapshot, err := r.fetch.FetchDocument(ctx, job.URL, job.Metadata.MaxQPS)
	if err != nil {
		return err
	}
	if snapshot == nil {
		job.MarkSucceeded()
		return nil
	}

	pages, discovered, err := r.collectPages(ctx, job, snapshot, spec)
	if err != nil {
		return err
	}

	discoveredHash := jobs.HashDiscoveredURLs(discovered)
	startPage := 0
	if checkpoint != nil && checkpoint.JobID == job.JobID && checkpoint.DiscoveredURLsHash == discoveredHash {
		startPage = checkpoint.PageIdx + 1
		log.Info("resuming from checkpoint", "page_idx", startPage)
	}

	entityType := r.opts.EntityType
	if entityType == domain.TypeAll {
		entityType = job.EntityType
	}

	for idx, page := range pages {
		if idx < startPage {
			continue
		}
		if pageErr := r.processPage(job, page, idx, discoveredHash, entityType, spec); pageErr != nil {
			return pageErr
		}
	}

	job.MarkSucceeded()
	return r.checkpoints.Clear(r.runID)
}

// collectPages fetches the job's landing page plus any discovered follow-up
// pages, bounded by the rule's page budget.
func (r *runState) collectPages(
	ctx context.Context,
	job *domain.Job,
	first *domain.Snapshot,
	spec *parser.RuleSpec,
) ([]*domain.Snapshot, []string, error) {
	doc, err := parser.ParseDocument(first.HTML)
	if err != nil {
		return nil, nil, err
	}

	pages := []*domain.Snapshot{first}
	extraURLs := parser.DiscoverNextURLs(doc, job.URL, spec)
	for _, extraURL := range extraURLs {
		extra, fetchErr := r.fetch.FetchDocument(ctx, extraURL, job.Metadata.MaxQPS)
		if fetchErr != nil {
			return nil, nil, fetchErr
		}
		if extra != nil {
			pages = append(pages, extra)
		}
	}

	discovered := append([]string{job.URL}, extraURLs...)
	return pages, discovered, nil
}

// processPage extracts and admits all entities on one page, checkpointing
// after every accepted entity.
func (r *runState) processPage(
	job *domain.Job,
	page *domain.Snapshot,
	pageIdx int,
	discoveredHash string,
	entityType string,
	spec *parser.RuleSpec,
) error {
	doc, err := parser.ParseDocument(page.HTML)
	if err != nil {
		r.metrics.Incr(metrics.CounterParseFailures, 1)
		return nil
	}
	extracted, err := parser.ExtractEntities(doc, job.SourceID, entityType, spec)
	if err != nil {
		r.metrics.Incr(metrics.CounterParseFailures, 1)
		return nil
	}

	for _, entity := range extracted {
		if admitErr := r.admitEntity(job, entity, page, pageIdx, discoveredHash); admitErr != nil {
			return admitErr
		}
	}
	return nil
}

// admitEntity pushes one extracted entity through normalisation, schema
// pruning and validation, then the dedup and merge gate.
func (r *runState) admitEntity(
	job *domain.Job,
	entity domain.Entity,
	page *domain.Snapshot,
	pageIdx int,
	discoveredHash string,
) error {
	if err := normalize.Apply(entity); err != nil {
		return err
	}

	typeKey := entity.Type()
	clean, err := r.schemas.Prune(typeKey, entity)
	if err != nil {
		return err
	}
	// Pruning may drop a timezone the schema does not model for this type;
	// validation still wants one when the source provided it.
	if clean.String(domain.FieldTimezone) == "" {
		clean[domain.FieldTimezone] = entity[domain.FieldTimezone]
	}
	for key, value := range clean {
		if value == nil {
			delete(clean, key)
		}
	}

	validation, err := r.schemas.Validate(typeKey, clean)
	if err != nil {
		return err
	}
	if !validation.OK {
		if _, rejectErr := r.quarantine.Reject(entity, validation.Errors); rejectErr != nil {
			return rejectErr
		}
		r.metrics.Incr(metrics.CounterValidatesFailed, 1)
		r.metrics.Incr(metrics.CounterQuarantineRows, 1)
		r.mu.Lock()
		r.statsFor(job.SourceID).Rejects++
		r.mu.Unlock()
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	duplicate, err := r.dedup.IsDuplicate(clean)
	if err != nil {
		return err
	}
	if duplicate {
		r.metrics.Incr(metrics.CounterDuplicates, 1)
		return nil
	}

	key, err := quality.EntityKey(clean)
	if err != nil {
		return err
	}
	if rememberErr := r.dedup.Remember(clean); rememberErr != nil {
		return rememberErr
	}

	index, ok := r.resultsIndex[typeKey]
	if !ok {
		index = make(map[string]domain.Entity)
		r.resultsIndex[typeKey] = index
	}
	stats := r.statsFor(job.SourceID)
	if existing, found := index[key]; found {
		merged, mutated := quality.Merge(existing, clean)
		index[key] = merged
		if mutated {
			r.metrics.Incr(metrics.CounterEntitiesUpdated, 1)
			stats.RowsUpdated++
		}
	} else {
		index[key] = clean
		r.results[typeKey] = append(r.results[typeKey], clean)
		r.metrics.Incr(metrics.CounterEntitiesNew, 1)
		stats.RowsNew++
	}

	return r.checkpoints.Save(r.runID, &domain.JobCheckpoint{
		JobID:              job.JobID,
		URLCursor:          page.URL,
		PageIdx:            pageIdx,
		DiscoveredURLsHash: discoveredHash,
	})
}
