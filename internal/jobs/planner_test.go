package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/sources"
)

func plannerSources() []*sources.Source {
	return []*sources.Source{
		{SourceID: "ev1", BaseURL: "https://ev1.example.org", Type: domain.TypeEvents, MaxQPS: 0.5, Concurrency: 2, CSSRulesPath: "rules/ev1.yml"},
		{SourceID: "fe1", BaseURL: "https://fe1.example.org", Type: domain.TypeFestivals, MaxQPS: 1, Concurrency: 1, CSSRulesPath: "rules/fe1.yml"},
		{SourceID: "ev2", BaseURL: "https://ev2.example.org", Type: domain.TypeEvents, MaxQPS: 1, Concurrency: 1, CSSRulesPath: "rules/ev2.yml"},
	}
}

func TestPlanJobsFiltersByType(t *testing.T) {
	t.Parallel()

	jobs := PlanJobs(plannerSources(), domain.TypeEvents, 100)
	require.Len(t, jobs, 2)
	assert.Equal(t, "ev1", jobs[0].SourceID)
	assert.Equal(t, "ev2", jobs[1].SourceID)
	assert.Equal(t, "rules/ev1.yml", jobs[0].Metadata.CSSRulesPath)
	assert.Equal(t, 0.5, jobs[0].Metadata.MaxQPS)
	assert.NotEqual(t, jobs[0].JobID, jobs[1].JobID)
}

func TestPlanJobsWildcardAndLimit(t *testing.T) {
	t.Parallel()

	all := PlanJobs(plannerSources(), domain.TypeAll, 100)
	assert.Len(t, all, 3)

	limited := PlanJobs(plannerSources(), domain.TypeAll, 2)
	require.Len(t, limited, 2)
	assert.Equal(t, "ev1", limited[0].SourceID)
	assert.Equal(t, "fe1", limited[1].SourceID)
}
