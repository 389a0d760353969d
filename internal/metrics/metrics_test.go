package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAttempt(t *testing.T) {
	before := testutil.ToFloat64(FetchAttempts.WithLabelValues("raw", AttemptEmpty))

	RecordAttempt("raw", AttemptEmpty)
	RecordAttempt("raw", AttemptEmpty)

	assert.Equal(t, before+2, testutil.ToFloat64(FetchAttempts.WithLabelValues("raw", AttemptEmpty)))
}

func TestRecordFeedFetch(t *testing.T) {
	var (
		ok     = testutil.ToFloat64(FeedFetches.WithLabelValues("ok"))
		failed = testutil.ToFloat64(FeedFetches.WithLabelValues("failed"))
	)

	RecordFeedFetch(true)
	RecordFeedFetch(false)
	RecordFeedFetch(false)

	assert.Equal(t, ok+1, testutil.ToFloat64(FeedFetches.WithLabelValues("ok")))
	assert.Equal(t, failed+2, testutil.ToFloat64(FeedFetches.WithLabelValues("failed")))
}

func TestRecordPass(t *testing.T) {
	var (
		passes  = testutil.ToFloat64(RefreshPasses)
		skipped = testutil.ToFloat64(SkippedSources)
	)

	RecordPass(0)
	RecordPass(3)

	assert.Equal(t, passes+2, testutil.ToFloat64(RefreshPasses))
	assert.Equal(t, skipped+3, testutil.ToFloat64(SkippedSources))
}

func TestRecordRefresh(t *testing.T) {
	before := testutil.ToFloat64(SourceRefreshes.WithLabelValues(RefreshCommitted))

	RecordRefresh(RefreshCommitted, 1.5)

	assert.Equal(t, before+1, testutil.ToFloat64(SourceRefreshes.WithLabelValues(RefreshCommitted)))
	assert.Equal(t, 1, testutil.CollectAndCount(RefreshDuration))
}
