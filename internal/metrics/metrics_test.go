package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySeedsDefaultCounters(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	snapshot := registry.Snapshot()
	assert.Len(t, snapshot, len(defaultCounters))
	assert.Equal(t, int64(0), snapshot[CounterPagesFetched])
}

func TestIncrAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Incr(CounterEntitiesNew, 1)
	registry.Incr(CounterEntitiesNew, 2)
	assert.Equal(t, int64(3), registry.Get(CounterEntitiesNew))

	registry.Incr("custom_counter", 5)
	assert.Equal(t, int64(5), registry.Get("custom_counter"))
}

func TestHTTPStatusBuckets(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.HTTPStatus(200)
	registry.HTTPStatus(204)
	registry.HTTPStatus(304)
	registry.HTTPStatus(404)
	registry.HTTPStatus(503)

	assert.Equal(t, int64(2), registry.Get(CounterHTTP2xx))
	assert.Equal(t, int64(1), registry.Get(CounterHTTP3xx))
	assert.Equal(t, int64(1), registry.Get(CounterHTTP4xx))
	assert.Equal(t, int64(1), registry.Get(CounterHTTP5xx))
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	snapshot := registry.Snapshot()
	snapshot[CounterRetries] = 99
	assert.Equal(t, int64(0), registry.Get(CounterRetries))
}

func TestExport(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Incr(CounterPagesFetched, 4)

	path := filepath.Join(t.TempDir(), "metrics", "run_events-1.json")
	require.NoError(t, registry.Export(path, "events-1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var payload struct {
		RunID       string           `json:"run_id"`
		Counters    map[string]int64 `json:"counters"`
		GeneratedAt string           `json:"generated_at"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "events-1", payload.RunID)
	assert.Equal(t, int64(4), payload.Counters[CounterPagesFetched])

	_, parseErr := time.Parse(time.RFC3339, payload.GeneratedAt)
	assert.NoError(t, parseErr)
}

func TestRecordDuration(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	done := registry.RecordDuration(CounterRunDurationMS)
	time.Sleep(5 * time.Millisecond)
	done()
	assert.GreaterOrEqual(t, registry.Get(CounterRunDurationMS), int64(5))
}
