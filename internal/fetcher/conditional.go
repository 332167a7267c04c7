package fetcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// conditionalCacheVersion versions the on-disk document; incompatible
// versions are discarded wholesale.
const conditionalCacheVersion = 1

// conditionalEntry records the validators seen for one URL.
type conditionalEntry struct {
	ETag         string `json:"etag"`
	LastModified string `json:"last_modified"`
	LastSeen     string `json:"last_seen"`
}

// conditionalDocument is the serialised cache file shape.
type conditionalDocument struct {
	Version int                         `json:"version"`
	Data    map[string]conditionalEntry `json:"data"`
}

// ConditionalCache persists ETag and Last-Modified validators per URL so
// repeat fetches can issue conditional GETs.
type ConditionalCache struct {
	path  string
	index map[string]conditionalEntry
	mu    sync.Mutex
}

// OpenConditionalCache loads the cache file at path, discarding documents
// with an incompatible version.
func OpenConditionalCache(path string) (*ConditionalCache, error) {
	cache := &ConditionalCache{
		path:  path,
		index: make(map[string]conditionalEntry),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create conditional cache dir: %w", mkErr)
		}
		return cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read conditional cache: %w", err)
	}

	var doc conditionalDocument
	if unmarshalErr := json.Unmarshal(data, &doc); unmarshalErr == nil && doc.Version == conditionalCacheVersion {
		cache.index = doc.Data
		if cache.index == nil {
			cache.index = make(map[string]conditionalEntry)
		}
	}
	return cache, nil
}

// HeadersFor returns the conditional request headers known for the URL:
// If-None-Match and/or If-Modified-Since.
func (c *ConditionalCache) HeadersFor(url string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	headers := make(map[string]string, 2)
	entry, ok := c.index[url]
	if !ok {
		return headers
	}
	if entry.ETag != "" {
		headers["If-None-Match"] = entry.ETag
	}
	if entry.LastModified != "" {
		headers["If-Modified-Since"] = entry.LastModified
	}
	return headers
}

// Update replaces the entry for the URL and rewrites the cache file.
func (c *ConditionalCache) Update(url, etag, lastModified string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index[url] = conditionalEntry{
		ETag:         etag,
		LastModified: lastModified,
		LastSeen:     strconv.FormatInt(time.Now().Unix(), 10),
	}
	return c.persist()
}

// persist writes the versioned document. Callers must hold the mutex.
func (c *ConditionalCache) persist() error {
	doc := conditionalDocument{Version: conditionalCacheVersion, Data: c.index}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode conditional cache: %w", err)
	}
	if writeErr := os.WriteFile(c.path, data, 0o644); writeErr != nil {
		return fmt.Errorf("write conditional cache: %w", writeErr)
	}
	return nil
}
