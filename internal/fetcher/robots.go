// Package fetcher provides HTTP fetching for the crawl pipeline: robots.txt
// compliance checking, conditional-request caching, per-host rate limiting
// and raw snapshot persistence.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// DefaultRobotsTimeout bounds a robots.txt fetch.
const DefaultRobotsTimeout = 5 * time.Second

// robotsTxtPath is the well-known path for robots.txt files.
const robotsTxtPath = "/robots.txt"

// maxRobotsBodyBytes limits the size of robots.txt responses we will read.
const maxRobotsBodyBytes = 512 * 1024 // 512 KB

// RobotsCache checks and caches robots.txt policies per scheme://host for
// the lifetime of a run. file:// URLs are always allowed. Fetch errors and
// >=400 responses yield an allow-all policy (fail-open).
type RobotsCache struct {
	httpClient *http.Client
	userAgent  string
	cache      map[string]*robotsEntry // keyed by scheme://host
	// mu serialises population so a cold host is fetched once, not once
	// per in-flight worker.
	mu sync.Mutex
}

// robotsEntry stores the parsed robots.txt data for one origin.
type robotsEntry struct {
	data     *robotstxt.RobotsData
	allowAll bool // true when robots.txt was missing, >=400 or errored
}

// NewRobotsCache creates a RobotsCache with the given identity and timeout.
func NewRobotsCache(userAgent string, timeout time.Duration) *RobotsCache {
	if timeout == 0 {
		timeout = DefaultRobotsTimeout
	}
	return &RobotsCache{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		cache:      make(map[string]*robotsEntry),
	}
}

// Allowed reports whether the supplied URL is permitted for the crawler.
func (r *RobotsCache) Allowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return false, fmt.Errorf("robots: parse url: %w", parseErr)
	}

	if parsed.Scheme == "file" {
		return true, nil
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	entry := r.getOrFetchEntry(ctx, parsed.Scheme, host)
	if entry.allowAll {
		return true, nil
	}
	return entry.data.TestAgent(parsed.Path, r.userAgent), nil
}

// getOrFetchEntry returns the cached policy for the origin, fetching and
// parsing robots.txt on first miss. Decisions stick for the whole run.
func (r *RobotsCache) getOrFetchEntry(ctx context.Context, scheme, host string) *robotsEntry {
	key := scheme + "://" + host

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.cache[key]; ok {
		return entry
	}

	entry := r.fetchAndParse(ctx, scheme, host)
	r.cache[key] = entry
	return entry
}

// fetchAndParse fetches robots.txt for the origin and builds its entry.
// Any failure degrades to allow-all.
func (r *RobotsCache) fetchAndParse(ctx context.Context, scheme, host string) *robotsEntry {
	robotsURL := scheme + "://" + host + robotsTxtPath

	body, statusCode, fetchErr := r.doFetch(ctx, robotsURL)
	if fetchErr != nil || statusCode >= http.StatusBadRequest {
		return &robotsEntry{allowAll: true}
	}

	data, parseErr := robotstxt.FromBytes(body)
	if parseErr != nil {
		return &robotsEntry{allowAll: true}
	}
	return &robotsEntry{data: data}
}

// doFetch performs the HTTP GET request for a robots.txt URL.
func (r *RobotsCache) doFetch(ctx context.Context, robotsURL string) (body []byte, statusCode int, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if reqErr != nil {
		return nil, 0, fmt.Errorf("robots: create request: %w", reqErr)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, doErr := r.httpClient.Do(req)
	if doErr != nil {
		return nil, 0, fmt.Errorf("robots: fetch: %w", doErr)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxRobotsBodyBytes)
	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("robots: read body: %w", readErr)
	}
	return body, resp.StatusCode, nil
}
