package fetch

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// Hosts beyond this many are forgotten least recently used first.
const maxTrackedHosts = 1024

// hostLimiter spaces out requests to the same host. A nil limiter never waits.
type hostLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	interval time.Duration
}

func newHostLimiter(interval time.Duration) *hostLimiter {
	if interval <= 0 {
		return nil
	}

	// Only errors on a non-positive size
	cache, _ := lru.New[string, *rate.Limiter](maxTrackedHosts)
	return &hostLimiter{
		limiters: cache,
		interval: interval,
	}
}

func (h *hostLimiter) wait(ctx context.Context, rawURL string) error {
	if h == nil {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return &url.Error{Op: "parse", URL: rawURL, Err: errors.New("missing host in URL")}
	}

	return h.forHost(u.Host).Wait(ctx)
}

func (h *hostLimiter) forHost(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.limiters.Get(host); ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(h.interval), 1)
	h.limiters.Add(host, l)

	return l
}
