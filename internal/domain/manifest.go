package domain

// SourceStats aggregates per-source row movement within one run.
type SourceStats struct {
	RowsNew     int `json:"rows_new"`
	RowsUpdated int `json:"rows_updated"`
	Rejects     int `json:"rejects"`
}

// RunManifest is the per-run JSON summary of counts, paths, metrics and
// per-source statistics.
type RunManifest struct {
	RunID       string                       `json:"run_id"`
	Counts      map[string]int               `json:"counts"`
	Paths       map[string]map[string]string `json:"paths"`
	SourceStats map[string]*SourceStats      `json:"source_stats"`
	Metrics     map[string]int64             `json:"metrics"`
	ExitCode    int                          `json:"exit_code"`
}
