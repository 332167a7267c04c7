// Package metrics provides in-process counters for crawl runs, suitable for
// snapshotting into run manifests and exporting to JSON.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Counter names pre-seeded on every registry.
const (
	CounterPagesFetched    = "pages_fetched"
	CounterHTTP2xx         = "http_2xx"
	CounterHTTP3xx         = "http_3xx"
	CounterHTTP4xx         = "http_4xx"
	CounterHTTP5xx         = "http_5xx"
	CounterRetries         = "retries"
	CounterUnchangedSkips  = "unchanged_skips"
	CounterParseFailures   = "parse_failures"
	CounterValidatesFailed = "validates_failed"
	CounterEntitiesNew     = "entities_new"
	CounterEntitiesUpdated = "entities_updated"
	CounterQuarantineRows  = "quarantine_rows"
	CounterDuplicates      = "duplicates"
	CounterRobotsDisallow  = "robots_disallow"
	CounterRunDurationMS   = "run_duration_ms"
)

// defaultCounters lists every counter seeded at construction time so that
// snapshots always carry the full set, even when zero.
var defaultCounters = []string{
	CounterPagesFetched,
	CounterHTTP2xx,
	CounterHTTP3xx,
	CounterHTTP4xx,
	CounterHTTP5xx,
	CounterRetries,
	CounterUnchangedSkips,
	CounterParseFailures,
	CounterValidatesFailed,
	CounterEntitiesNew,
	CounterEntitiesUpdated,
	CounterQuarantineRows,
	CounterDuplicates,
	CounterRobotsDisallow,
	CounterRunDurationMS,
}

// Registry holds mutable named counters for the current run.
type Registry struct {
	counters map[string]int64
	mu       sync.Mutex
}

// Export document shape written by Export.
type exportPayload struct {
	RunID       string           `json:"run_id"`
	Counters    map[string]int64 `json:"counters"`
	GeneratedAt string           `json:"generated_at"`
}

// NewRegistry creates a registry with all default counters at zero.
func NewRegistry() *Registry {
	r := &Registry{counters: make(map[string]int64, len(defaultCounters))}
	for _, name := range defaultCounters {
		r.counters[name] = 0
	}
	return r
}

// Incr adds delta to the named counter, creating it on first use.
func (r *Registry) Incr(name string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

// Get returns the current value for the counter, defaulting to zero.
func (r *Registry) Get(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name]
}

// HTTPStatus bumps the bucketed http_{N}xx counter for a status code.
func (r *Registry) HTTPStatus(statusCode int) {
	bucket := statusCode / 100
	r.Incr(fmt.Sprintf("http_%dxx", bucket), 1)
}

// Snapshot returns a copy of all counters for reporting.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]int64, len(r.counters))
	for name, value := range r.counters {
		snapshot[name] = value
	}
	return snapshot
}

// Export writes counters to a JSON document at the given path.
func (r *Registry) Export(path, runID string) error {
	payload := exportPayload{
		RunID:       runID,
		Counters:    r.Snapshot(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics export: %w", err)
	}

	if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
		return fmt.Errorf("create metrics dir: %w", mkErr)
	}

	if writeErr := os.WriteFile(path, data, 0o644); writeErr != nil {
		return fmt.Errorf("write metrics export: %w", writeErr)
	}
	return nil
}

// RecordDuration measures elapsed wall time and adds the elapsed
// milliseconds to the named counter when the returned func runs.
func (r *Registry) RecordDuration(name string) func() {
	start := time.Now()
	return func() {
		r.Incr(name, time.Since(start).Milliseconds())
	}
}
