package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jdholdren/curator/internal/curator"
	"github.com/jdholdren/curator/internal/logger"
	"github.com/jdholdren/curator/internal/metrics"
)

// Refresher rebuilds the cached posts of a single source.
type Refresher struct {
	fetcher Fetcher
	sources curator.SourceStore
	writer  *Writer
	window  int
	now     func() time.Time
}

func NewRefresher(fetcher Fetcher, sources curator.SourceStore, writer *Writer, cfg Config) *Refresher {
	cfg = cfg.withDefaults()

	return &Refresher{
		fetcher: fetcher,
		sources: sources,
		writer:  writer,
		window:  cfg.RetainedWindow,
		now:     time.Now,
	}
}

// Refresh fetches every feed of the source in order, keeps the newest
// window of distinct items and commits it to the cache.
//
// Nothing is returned: failures are logged here and the source is stamped
// as refreshed either way, so one bad source never stops the others.
func (r *Refresher) Refresh(ctx context.Context, src curator.Source) {
	if len(src.FeedURLs) == 0 {
		return
	}

	ctx = logger.Ctx(ctx, slog.String("source_id", src.ID))
	start := r.now()

	result, err := r.refresh(ctx, src)
	if err != nil {
		result = metrics.RefreshError
		slog.ErrorContext(ctx, "error refreshing source", "error", err)
	}

	if err := r.sources.UpdateLastRefreshed(ctx, src.ID, r.now()); err != nil {
		slog.ErrorContext(ctx, "error stamping source as refreshed", "error", err)
	}

	elapsed := r.now().Sub(start)
	metrics.RecordRefresh(result, elapsed.Seconds())
	slog.InfoContext(ctx, "refreshed source", "result", result, "duration", elapsed)
}

// Returns the outcome to record for a successful refresh.
func (r *Refresher) refresh(ctx context.Context, src curator.Source) (string, error) {
	var merged []curator.Item
	for _, feedURL := range src.FeedURLs {
		items := r.fetcher.Fetch(logger.Ctx(ctx, slog.String("feed_url", feedURL)), feedURL)
		for _, it := range items {
			it.SourceID = src.ID
			if it.SourceLabel == "" {
				it.SourceLabel = feedURL
			}
			merged = append(merged, it)
		}
	}

	// A pass cut short would only see some of the feeds; committing that
	// would evict the posts of the others.
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("error fetching feeds: %w", err)
	}

	window := Window(merged, r.window)
	if err := r.writer.Commit(ctx, src.ID, window); err != nil {
		return "", fmt.Errorf("error committing posts: %w", err)
	}

	if len(window) == 0 {
		slog.WarnContext(ctx, "no items fetched, cleared cached posts", "feeds", len(src.FeedURLs))
		return metrics.RefreshEmpty, nil
	}

	return metrics.RefreshCommitted, nil
}

// Dedupe drops every item whose dedupe key was already seen; the first one
// wins.
func Dedupe(items []curator.Item) []curator.Item {
	var (
		seen = make(map[string]struct{}, len(items))
		out  = make([]curator.Item, 0, len(items))
	)
	for _, it := range items {
		key := it.DedupeKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}

	return out
}

// Window dedupes the items and returns at most n of them, newest first.
// Items published at the same instant keep their merge order.
func Window(items []curator.Item, n int) []curator.Item {
	items = Dedupe(items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	if n > 0 && len(items) > n {
		items = items[:n]
	}

	return items
}
