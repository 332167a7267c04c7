package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/eventcrawl/internal/config"
	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/logger"
	"github.com/jonesrussell/eventcrawl/internal/metrics"
)

// fixturePage embeds the same event twice so a run exercises the dedup gate.
const fixturePage = `
<html><head>
<script type="application/ld+json">
{
  "@graph": [
    {
      "@type": "Event",
      "name": "Jazz Night",
      "startDate": "2026-06-01T19:00:00-04:00",
      "endDate": "2026-06-01T22:00:00-04:00",
      "location": {
        "name": "Blue Room",
        "address": {
          "streetAddress": "1 Main St",
          "addressLocality": "Toronto",
          "addressCountry": "CA"
        }
      }
    },
    {
      "@type": "Event",
      "name": "Jazz Night",
      "startDate": "2026-06-01T21:00:00-04:00",
      "endDate": "2026-06-01T23:00:00-04:00",
      "location": {
        "name": "Blue Room",
        "address": {"addressLocality": "Toronto"}
      }
    }
  ]
}
</script>
</head><body></body></html>`

const fixtureSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["source_id", "title", "venue_name", "city", "time_slots"],
  "properties": {
    "source_id": {"type": "string", "minLength": 1},
    "title": {"type": "string", "minLength": 1},
    "venue_name": {"type": "string", "minLength": 1},
    "address": {"type": "string"},
    "city": {"type": "string", "minLength": 1},
    "country": {"type": "string"},
    "start": {"type": "string"},
    "end": {"type": "string"},
    "timezone": {"type": "string"},
    "time_slots": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["start", "end"],
        "properties": {"start": {"type": "string"}, "end": {"type": "string"}}
      }
    },
    "price_text": {"type": "string"},
    "price_value": {"type": "number"},
    "organizer": {"type": "string"},
    "url": {"type": "string"},
    "emails": {"type": "array"},
    "phones": {"type": "array"},
    "images": {"type": "array"},
    "taxonomy": {"type": "array"}
  }
}`

const fixtureRule = `
selectors:
  list_item: "div.no-such-item"
pagination:
  max_pages: 1
`

// fixtureConfig lays out a complete file:// crawl environment in a temp dir.
func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	pagePath := filepath.Join(root, "fixture", "page.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(pagePath), 0o755))
	require.NoError(t, os.WriteFile(pagePath, []byte(fixturePage), 0o644))

	registryDir := filepath.Join(root, "registry")
	require.NoError(t, os.MkdirAll(filepath.Join(registryDir, "rules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(registryDir, "rules", "demo.yml"), []byte(fixtureRule), 0o644))

	csvPath := filepath.Join(registryDir, "sources.csv")
	registry := "source_id,base_url,type,country,robots_ok,sitemap_url,css_rules_path,crawl_freq,max_qps,concurrency,enabled\n" +
		fmt.Sprintf("src-demo,file://%s,events,CA,yes,,rules/demo.yml,daily,2.0,1,yes\n", pagePath)
	require.NoError(t, os.WriteFile(csvPath, []byte(registry), 0o644))

	schemasDir := filepath.Join(root, "schemas")
	require.NoError(t, os.MkdirAll(schemasDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(schemasDir, "event.schema.json"), []byte(fixtureSchema), 0o644))

	return &config.Config{
		App: config.AppConfig{
			DataRoot:      filepath.Join(root, "data"),
			BronzeDir:     filepath.Join(root, "data", "bronze"),
			SilverDir:     filepath.Join(root, "data", "silver"),
			GoldDir:       filepath.Join(root, "data", "gold"),
			MetricsDir:    filepath.Join(root, "data", "metrics"),
			QuarantineDir: filepath.Join(root, "data", "quarantine"),
			QueueDir:      filepath.Join(root, "data", "queue"),
		},
		Fetch: config.FetchConfig{
			UserAgent:      "eventcrawl-test/1.0",
			TimeoutSeconds: 5,
			MaxConcurrency: 2,
			MaxQPS:         2.0,
		},
		Scheduler: config.SchedulerConfig{
			RunManifestDir:   filepath.Join(root, "data", "manifests"),
			JobCheckpointDir: filepath.Join(root, "data", "checkpoints"),
		},
		SourcesCSV: csvPath,
		SchemasDir: schemasDir,
	}
}

func runOptions(runID string) RunOptions {
	return RunOptions{
		EntityType:  domain.TypeEvents,
		Limit:       10,
		SourceID:    "all",
		Concurrency: 1,
		Timeout:     5 * time.Second,
		RunID:       runID,
	}
}

func TestCrawlerPlan(t *testing.T) {
	t.Parallel()

	c := New(fixtureConfig(t), logger.NewNoOp())
	planned, err := c.Plan(runOptions(""))
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, "src-demo", planned[0].SourceID)
	assert.Equal(t, domain.TypeEvents, planned[0].Type)
	assert.NotEmpty(t, planned[0].JobID)
	assert.NotEmpty(t, planned[0].CSSRulesPath)
}

func TestCrawlerRunEndToEnd(t *testing.T) {
	t.Parallel()

	cfg := fixtureConfig(t)
	c := New(cfg, logger.NewNoOp())

	runID := "events-20260601T120000"
	require.NoError(t, c.Run(context.Background(), runOptions(runID)))

	manifestPath := filepath.Join(cfg.Scheduler.RunManifestDir, fmt.Sprintf("run-%s.json", runID))
	data, err := os.ReadFile(manifestPath)
	require.NoError(t, err)

	var manifest domain.RunManifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, runID, manifest.RunID)
	assert.Equal(t, 0, manifest.ExitCode)

	// The two JSON-LD nodes are the same event, so one row lands and the
	// second counts as a duplicate.
	assert.Equal(t, 1, manifest.Counts[domain.TypeEvents])
	assert.Equal(t, int64(1), manifest.Metrics[metrics.CounterEntitiesNew])
	assert.Equal(t, int64(1), manifest.Metrics[metrics.CounterDuplicates])
	assert.Equal(t, int64(1), manifest.Metrics[metrics.CounterPagesFetched])
	assert.Equal(t, int64(0), manifest.Metrics[metrics.CounterValidatesFailed])

	stats, ok := manifest.SourceStats["src-demo"]
	require.True(t, ok)
	assert.Equal(t, 1, stats.RowsNew)
	assert.Equal(t, 0, stats.Rejects)

	paths := manifest.Paths[domain.TypeEvents]
	require.NotNil(t, paths)
	assert.FileExists(t, paths["silver"])
	assert.FileExists(t, paths["gold"])
	assert.FileExists(t, paths["sqlite"])

	silver, err := os.ReadFile(paths["silver"])
	require.NoError(t, err)
	var row domain.Entity
	require.NoError(t, json.Unmarshal(silver, &row))
	assert.Equal(t, "Jazz Night", row[domain.FieldTitle])
	assert.Equal(t, "Toronto", row[domain.FieldCity])
	assert.Equal(t, "UTC-04:00", row[domain.FieldTimezone])

	assert.FileExists(t, filepath.Join(cfg.App.MetricsDir, fmt.Sprintf("run_%s.json", runID)))
	// Job success clears the run checkpoint.
	assert.NoFileExists(t, filepath.Join(cfg.Scheduler.JobCheckpointDir, runID+".json"))
}

func TestCrawlerRunNoMatchingSource(t *testing.T) {
	t.Parallel()

	c := New(fixtureConfig(t), logger.NewNoOp())
	opts := runOptions("")
	opts.SourceID = "no-such-source"
	assert.NoError(t, c.Run(context.Background(), opts))
}

func TestCrawlerRunWrongTypeHasNoJobs(t *testing.T) {
	t.Parallel()

	c := New(fixtureConfig(t), logger.NewNoOp())
	opts := runOptions("")
	opts.EntityType = domain.TypeSports
	assert.NoError(t, c.Run(context.Background(), opts))
}
