package worker

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/jdholdren/curator/internal/curator"
	"github.com/jdholdren/curator/internal/ingest"
)

type activities struct {
	sources   curator.SourceStore
	refresher *ingest.Refresher
}

// Instance to make the workflow a bit more readable
var acts = activities{}

// Lists the ids of every registered source.
func (a activities) AllSources(ctx context.Context) ([]string, error) {
	srcs, err := a.sources.AllSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing sources: %w", err)
	}

	ids := make([]string, len(srcs))
	for i, src := range srcs {
		ids[i] = src.ID
	}

	return ids, nil
}

// Refreshes the cached posts of one source.
//
// Feed failures are absorbed by the refresher; only a source that can't be
// loaded fails the activity.
func (a activities) RefreshSource(ctx context.Context, sourceID string) error {
	src, err := a.sources.Source(ctx, sourceID)
	if errors.Is(err, curator.ErrNotFound) {
		return temporal.NewNonRetryableApplicationError("source not found", errTypeNotFound, err)
	}
	if err != nil {
		return fmt.Errorf("error loading source: %w", err)
	}

	activity.GetLogger(ctx).Info("refreshing source", "source_id", src.ID, "feeds", len(src.FeedURLs))
	a.refresher.Refresh(ctx, src)

	return nil
}

// Error types
//
// These are error types in the temporal sense, not the general "go" error types sense.
// They are used since between activities error types are marshaled and type information is lost.
const (
	errTypeNotFound = "notFound"
)
