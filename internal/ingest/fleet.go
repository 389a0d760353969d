package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jdholdren/curator/internal/curator"
	"github.com/jdholdren/curator/internal/logger"
	"github.com/jdholdren/curator/internal/metrics"
)

// Fleet runs refresh passes over every registered source.
type Fleet struct {
	sources   curator.SourceStore
	refresher *Refresher
	limit     int

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewFleet(sources curator.SourceStore, refresher *Refresher, cfg Config) *Fleet {
	cfg = cfg.withDefaults()

	return &Fleet{
		sources:   sources,
		refresher: refresher,
		limit:     cfg.Concurrency,
		inflight:  make(map[string]struct{}),
	}
}

// RunPass loads the sources and starts one refresh per source, then returns
// without waiting for them.
//
// A source still being refreshed by an earlier pass is skipped. Each refresh
// is isolated: an error or a panic is logged and the rest carry on. After
// Close it does nothing.
func (f *Fleet) RunPass(ctx context.Context) {
	srcs, err := f.sources.AllSources(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "error loading sources for refresh pass", "error", err)
		return
	}

	claimed, ok := f.claimAll(ctx, srcs)
	if !ok {
		slog.InfoContext(ctx, "fleet closed, skipping refresh pass")
		return
	}

	metrics.RecordPass(len(srcs) - len(claimed))
	slog.InfoContext(ctx, "starting refresh pass", "sources", len(srcs), "dispatched", len(claimed))

	go func() {
		defer f.wg.Done()

		var g errgroup.Group
		if f.limit > 0 {
			g.SetLimit(f.limit)
		}
		for _, src := range claimed {
			src := src
			g.Go(func() error {
				defer f.release(src.ID)

				if err := f.refreshOne(ctx, src); err != nil {
					slog.ErrorContext(logger.Ctx(ctx, slog.String("source_id", src.ID)), "error refreshing source", "error", err)
				}

				return nil
			})
		}
		_ = g.Wait()

		slog.InfoContext(ctx, "finished refresh pass", "dispatched", len(claimed))
	}()
}

// Wait blocks until every refresh started so far has finished.
func (f *Fleet) Wait() {
	f.wg.Wait()
}

// Close stops new passes from starting. Passes already started keep going;
// Wait for them.
func (f *Fleet) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
}

func (f *Fleet) refreshOne(ctx context.Context, src curator.Source) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordRefresh(metrics.RefreshPanic, 0)
			err = fmt.Errorf("panic refreshing source: %v", r)
		}
	}()

	f.refresher.Refresh(ctx, src)

	return nil
}

// Marks the sources not already in flight as in flight and registers the
// pass with the wait group, all under one lock so Close can't slip between.
// Reports false once the fleet is closed.
func (f *Fleet) claimAll(ctx context.Context, srcs []curator.Source) ([]curator.Source, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, false
	}

	claimed := make([]curator.Source, 0, len(srcs))
	for _, src := range srcs {
		if _, ok := f.inflight[src.ID]; ok {
			slog.InfoContext(ctx, "source still refreshing, skipping", "source_id", src.ID)
			continue
		}
		f.inflight[src.ID] = struct{}{}
		claimed = append(claimed, src)
	}
	f.wg.Add(1)

	return claimed, true
}

func (f *Fleet) release(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.inflight, id)
}
