package fetcher

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiters applies per-host request rates with a shared global ceiling.
// Each source contributes its own max_qps; the ceiling comes from the CLI.
type HostLimiters struct {
	globalQPS float64
	global    *rate.Limiter
	perHost   map[string]*rate.Limiter
	mu        sync.Mutex
}

// NewHostLimiters creates a limiter set with the given global QPS ceiling.
// A non-positive ceiling disables the global limiter.
func NewHostLimiters(globalQPS float64) *HostLimiters {
	h := &HostLimiters{
		globalQPS: globalQPS,
		perHost:   make(map[string]*rate.Limiter),
	}
	if globalQPS > 0 {
		h.global = rate.NewLimiter(rate.Limit(globalQPS), 1)
	}
	return h
}

// Wait blocks until both the host's limiter and the global ceiling admit
// one request. file:// URLs are never limited.
func (h *HostLimiters) Wait(ctx context.Context, rawURL string, hostQPS float64) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "file" {
		return nil
	}

	limiter := h.limiterFor(strings.ToLower(parsed.Host), hostQPS)
	if limiter != nil {
		if waitErr := limiter.Wait(ctx); waitErr != nil {
			return waitErr
		}
	}
	if h.global != nil {
		return h.global.Wait(ctx)
	}
	return nil
}

// limiterFor returns the limiter for a host, creating it on first use. The
// host rate is capped by the global ceiling.
func (h *HostLimiters) limiterFor(host string, hostQPS float64) *rate.Limiter {
	if hostQPS <= 0 {
		return nil
	}
	if h.globalQPS > 0 && hostQPS > h.globalQPS {
		hostQPS = h.globalQPS
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	limiter, ok := h.perHost[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(hostQPS), 1)
		h.perHost[host] = limiter
	}
	return limiter
}
