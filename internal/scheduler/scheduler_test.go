package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/eventcrawl/internal/config"
	"github.com/jonesrussell/eventcrawl/internal/crawler"
	"github.com/jonesrussell/eventcrawl/internal/logger"
)

func TestResolveRunIDReusesCheckpoint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events-20260101T000000000123.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events-20260301T000000000456.json"), []byte("{}"), 0o644))
	// Checkpoints for other types never influence the run id.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sports-20250101T000000000789.json"), []byte("{}"), 0o644))

	assert.Equal(t, "events-20260101T000000000123", ResolveRunID("events", dir))
}

func TestResolveRunIDGeneratesFreshID(t *testing.T) {
	t.Parallel()

	runID := ResolveRunID("events", t.TempDir())
	assert.True(t, strings.HasPrefix(runID, "events-"))

	other := ResolveRunID("events", t.TempDir())
	assert.NotEqual(t, runID, other)
}

const schedulerFixturePage = `
<html><head>
<script type="application/ld+json">
{
  "@type": "Event",
  "name": "Jazz Night",
  "startDate": "2026-06-01T19:00:00-04:00",
  "endDate": "2026-06-01T22:00:00-04:00",
  "location": {
    "name": "Blue Room",
    "address": {"addressLocality": "Toronto"}
  }
}
</script>
</head><body></body></html>`

const schedulerFixtureSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["source_id", "title", "city"],
  "properties": {
    "source_id": {"type": "string"},
    "title": {"type": "string"},
    "venue_name": {"type": "string"},
    "city": {"type": "string"},
    "start": {"type": "string"},
    "end": {"type": "string"},
    "timezone": {"type": "string"},
    "time_slots": {"type": "array"}
  }
}`

func schedulerFixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	pagePath := filepath.Join(root, "page.html")
	require.NoError(t, os.WriteFile(pagePath, []byte(schedulerFixturePage), 0o644))

	registryDir := filepath.Join(root, "registry")
	require.NoError(t, os.MkdirAll(filepath.Join(registryDir, "rules"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(registryDir, "rules", "demo.yml"),
		[]byte("selectors:\n  list_item: \"div.no-such-item\"\n"),
		0o644,
	))

	csvPath := filepath.Join(registryDir, "sources.csv")
	registry := "source_id,base_url,type,country,robots_ok,sitemap_url,css_rules_path,crawl_freq,max_qps,concurrency,enabled\n" +
		fmt.Sprintf("src-demo,file://%s,events,CA,yes,,rules/demo.yml,daily,2.0,1,yes\n", pagePath)
	require.NoError(t, os.WriteFile(csvPath, []byte(registry), 0o644))

	schemasDir := filepath.Join(root, "schemas")
	require.NoError(t, os.MkdirAll(schemasDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(schemasDir, "event.schema.json"), []byte(schedulerFixtureSchema), 0o644))

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
			MaxConcurrency: 1,
			MaxQPS:         2.0,
		},
		Scheduler: config.SchedulerConfig{
			RunManifestDir:   filepath.Join(root, "data", "manifests"),
			JobCheckpointDir: filepath.Join(root, "data", "checkpoints"),
			Jobs: []config.ScheduledJob{
				{SourceType: "events", Cron: "*/30 * * * *", Limit: 10},
			},
		},
		SourcesCSV: csvPath,
		SchemasDir: schemasDir,
	}
}

func TestSchedulerRunBoundedTicks(t *testing.T) {
	t.Parallel()

	cfg := schedulerFixtureConfig(t)
	log := logger.NewNoOp()
	s := New(cfg, crawler.New(cfg, log), log)

	require.NoError(t, s.Run(context.Background(), 2, 0))

	manifests, err := filepath.Glob(filepath.Join(cfg.Scheduler.RunManifestDir, "run-events-*.json"))
	require.NoError(t, err)
	assert.Len(t, manifests, 2)
}

func TestSchedulerRunNoJobs(t *testing.T) {
	t.Parallel()

	cfg := schedulerFixtureConfig(t)
	cfg.Scheduler.Jobs = nil
	log := logger.NewNoOp()
	s := New(cfg, crawler.New(cfg, log), log)
	assert.NoError(t, s.Run(context.Background(), 1, 0))
}

func TestSchedulerRunInvalidCronStillRuns(t *testing.T) {
	t.Parallel()

	cfg := schedulerFixtureConfig(t)
	cfg.Scheduler.Jobs[0].Cron = "not a cron"
	log := logger.NewNoOp()
	s := New(cfg, crawler.New(cfg, log), log)

	require.NoError(t, s.Run(context.Background(), 1, 0))

	manifests, err := filepath.Glob(filepath.Join(cfg.Scheduler.RunManifestDir, "run-events-*.json"))
	require.NoError(t, err)
	assert.Len(t, manifests, 1)
}
