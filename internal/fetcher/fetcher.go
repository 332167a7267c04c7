package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/logger"
	"github.com/jonesrussell/eventcrawl/internal/metrics"
)

// Retry policy for transport errors: up to 4 attempts with an exponential
// backoff starting at 1s and doubling.
const (
	fetchMaxAttempts    = 4
	fetchInitialBackoff = time.Second
	fetchBackoffFactor  = 2
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// Fetcher performs one-URL fetches with retries, conditional GETs and raw
// snapshot persistence.
type Fetcher struct {
	httpClient *http.Client
	robots     *RobotsCache
	cache      *ConditionalCache
	limiters   *HostLimiters
	metrics    *metrics.Registry
	log        logger.Interface
	userAgent  string
	bronzeRoot string
}

// Config bundles the Fetcher's collaborators and settings.
type Config struct {
	Robots     *RobotsCache
	Cache      *ConditionalCache
	Limiters   *HostLimiters
	Metrics    *metrics.Registry
	Logger     logger.Interface
	UserAgent  string
	Timeout    time.Duration
	BronzeRoot string
}

// fetchResult carries one HTTP exchange back to the status routing.
type fetchResult struct {
	statusCode int
	body       []byte
	headers    map[string]string
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		robots:     cfg.Robots,
		cache:      cfg.Cache,
		limiters:   cfg.Limiters,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		userAgent:  cfg.UserAgent,
		bronzeRoot: cfg.BronzeRoot,
	}
}

// FetchDocument fetches one URL respecting robots and conditional GET
// semantics. It returns nil without error when the URL is disallowed by
// robots or the content is unchanged (304). HTTP error statuses surface as
// errors so the job layer can apply its normal retry policy.
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string, hostQPS float64) (*domain.Snapshot, error) {
	allowed, robotsErr := f.robots.Allowed(ctx, rawURL)
	if robotsErr != nil {
		return nil, robotsErr
	}
	if !allowed {
		f.metrics.Incr(metrics.CounterRobotsDisallow, 1)
		f.log.Info("robots disallow", "url", rawURL)
		return nil, nil
	}

	if waitErr := f.limiters.Wait(ctx, rawURL, hostQPS); waitErr != nil {
		return nil, waitErr
	}

	result, fetchErr := f.doFetch(ctx, rawURL, f.cache.HeadersFor(rawURL))
	if fetchErr != nil {
		return nil, fetchErr
	}

	f.metrics.Incr(metrics.CounterPagesFetched, 1)
	f.metrics.HTTPStatus(result.statusCode)

	if result.statusCode == http.StatusNotModified {
		f.metrics.Incr(metrics.CounterUnchangedSkips, 1)
		if updateErr := f.cache.Update(rawURL, result.headers["Etag"], result.headers["Last-Modified"]); updateErr != nil {
			return nil, updateErr
		}
		return nil, nil
	}

	if result.statusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("http status %d for %s", result.statusCode, rawURL)
	}

	snapshot := &domain.Snapshot{
		URL:       rawURL,
		HTML:      string(result.body),
		Headers:   result.headers,
		FetchedAt: time.Now().UTC(),
	}
	if saveErr := SaveSnapshot(f.bronzeRoot, snapshot); saveErr != nil {
		return nil, saveErr
	}
	if updateErr := f.cache.Update(rawURL, result.headers["Etag"], result.headers["Last-Modified"]); updateErr != nil {
		return nil, updateErr
	}
	return snapshot, nil
}

// doFetch performs the HTTP exchange, retrying transport errors with
// exponential backoff. HTTP statuses are never retried here.
func (f *Fetcher) doFetch(ctx context.Context, rawURL string, headers map[string]string) (*fetchResult, error) {
	var result *fetchResult
	attempt := 0

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = fetchInitialBackoff
	policy.Multiplier = fetchBackoffFactor
	policy.RandomizationFactor = 0
	policy.MaxInterval = fetchInitialBackoff * 8

	operation := func() error {
		attempt++
		start := time.Now()
		attemptResult, err := f.fetchOnce(ctx, rawURL, headers)
		elapsedMS := time.Since(start).Milliseconds()
		if err != nil {
			f.metrics.Incr(metrics.CounterRetries, 1)
			f.log.Warn("fetch retry", "attempt", attempt, "url", rawURL, "reason", err.Error())
			return err
		}
		f.log.Info("fetch",
			"url", rawURL,
			"status", attemptResult.statusCode,
			"bytes", len(attemptResult.body),
			"elapsed_ms", elapsedMS,
		)
		result = attemptResult
		return nil
	}

	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(policy, fetchMaxAttempts-1), ctx)
	if err := backoff.Retry(operation, retryPolicy); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return result, nil
}

// fetchOnce performs a single request attempt. file:// URLs read straight
// from disk so fixture crawls work without a network.
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string, headers map[string]string) (*fetchResult, error) {
	parsed, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse url: %w", parseErr))
	}
	if parsed.Scheme == "file" {
		return fetchFile(parsed)
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if reqErr != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", reqErr))
	}
	req.Header.Set("User-Agent", f.userAgent)
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, doErr := f.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("http fetch: %w", doErr)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)
	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}

	responseHeaders := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		responseHeaders[http.CanonicalHeaderKey(name)] = resp.Header.Get(name)
	}
	return &fetchResult{
		statusCode: resp.StatusCode,
		body:       body,
		headers:    responseHeaders,
	}, nil
}

// fetchFile serves a file:// URL as a 200 response.
func fetchFile(parsed *url.URL) (*fetchResult, error) {
	location := parsed.Path
	if parsed.Host != "" {
		location = filepath.Join(parsed.Host, parsed.Path)
	}

	body, err := os.ReadFile(location)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("read file url: %w", err))
	}
	return &fetchResult{
		statusCode: http.StatusOK,
		body:       body,
		headers:    map[string]string{},
	}, nil
}
