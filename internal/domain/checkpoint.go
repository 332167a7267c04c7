package domain

// JobCheckpoint records per-job page progress for resumable runs.
// A restored checkpoint is only honoured when both JobID and
// DiscoveredURLsHash match the replanned job exactly.
type JobCheckpoint struct {
	JobID              string `json:"job_id"`
	URLCursor          string `json:"url_cursor"`
	PageIdx            int    `json:"page_idx"`
	DiscoveredURLsHash string `json:"discovered_urls_hash"`
}
