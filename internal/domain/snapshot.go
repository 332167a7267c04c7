package domain

import (
	"time"
)

// SnapshotTimeFormat encodes the capture time into the snapshot filename.
const SnapshotTimeFormat = "20060102T150405"

// Snapshot represents a fetched page along with metadata for caching.
// The raw tier stores one snapshot directory per URL hash; snapshots are
// append-only per URL.
type Snapshot struct {
	URL       string
	HTML      string
	Headers   map[string]string
	FetchedAt time.Time
	// Path is the resolved bronze-tier HTML file, set after persistence.
	Path string
}
