// Package jobs provides job planning, the crash-safe persistent job queue
// and per-run checkpointing.
package jobs

import (
	"github.com/google/uuid"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/sources"
)

// PlanJobs maps enabled sources onto crawl jobs for the requested entity
// type, preserving registry order and emitting at most limit jobs. The
// wildcard type plans every source regardless of its type.
func PlanJobs(srcs []*sources.Source, entityType string, limit int) []*domain.Job {
	jobs := make([]*domain.Job, 0, min(len(srcs), limit))
	for _, source := range srcs {
		if entityType != domain.TypeAll && source.Type != entityType {
			continue
		}
		job := domain.NewJob(
			uuid.NewString(),
			source.SourceID,
			source.Type,
			source.BaseURL,
			domain.JobMetadata{
				CSSRulesPath: source.CSSRulesPath,
				MaxQPS:       source.MaxQPS,
				Concurrency:  source.Concurrency,
			},
		)
		jobs = append(jobs, job)
		if len(jobs) >= limit {
			break
		}
	}
	return jobs
}
