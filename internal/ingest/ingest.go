// Package ingest keeps the post cache of every curated source in step with
// its feeds: fetch, merge, dedupe, keep the newest window, commit.
package ingest

import (
	"context"
	"time"

	"github.com/jdholdren/curator/internal/curator"
)

const (
	DefaultInterval       = 15 * time.Minute
	DefaultRetainedWindow = 50
	DefaultHardCap        = 200
)

type (
	// Fetcher resolves one feed URL into normalized items. It never fails:
	// an unreachable or unparseable feed yields no items.
	Fetcher interface {
		Fetch(ctx context.Context, feedURL string) []curator.Item
	}

	Config struct {
		// How often a full pass over the sources runs.
		Interval time.Duration
		// Number of newest items kept per source.
		RetainedWindow int
		// Upper bound of cached posts per source, whatever happened before.
		HardCap int
		// Sources refreshed at once during a pass; 0 is unlimited.
		Concurrency int
	}
)

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.RetainedWindow <= 0 {
		c.RetainedWindow = DefaultRetainedWindow
	}
	if c.HardCap <= 0 {
		c.HardCap = DefaultHardCap
	}
	if c.HardCap < c.RetainedWindow {
		c.HardCap = c.RetainedWindow
	}
	if c.Concurrency < 0 {
		c.Concurrency = 0
	}

	return c
}
