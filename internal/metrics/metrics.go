// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "curator"

// Outcomes of a single fetch attempt.
const (
	AttemptOK    = "ok"
	AttemptEmpty = "empty"
	AttemptError = "error"
)

// Outcomes of a source refresh.
const (
	RefreshCommitted = "committed"
	RefreshEmpty     = "empty"
	RefreshError     = "error"
	RefreshPanic     = "panic"
)

var (
	// FetchAttempts counts every request strategy tried against a URL.
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Total number of feed fetch attempts",
		},
		[]string{"strategy", "result"},
	)

	// FeedFetches counts whole feed fetches, after every fallback.
	FeedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Total number of feed fetches by outcome",
		},
		[]string{"result"},
	)

	SourceRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_refreshes_total",
			Help:      "Total number of source refreshes by outcome",
		},
		[]string{"result"},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_refresh_duration_seconds",
			Help:      "Duration of source refreshes in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	RefreshPasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_passes_total",
			Help:      "Total number of refresh passes started",
		},
	)

	// SkippedSources counts sources left out of a pass because an earlier
	// refresh of theirs was still running.
	SkippedSources = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_sources_total",
			Help:      "Total number of sources skipped while still refreshing",
		},
	)
)

// RecordAttempt records one fetch attempt.
func RecordAttempt(strategy, result string) {
	FetchAttempts.WithLabelValues(strategy, result).Inc()
}

// RecordFeedFetch records the outcome of a feed fetch.
func RecordFeedFetch(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	FeedFetches.WithLabelValues(result).Inc()
}

// RecordRefresh records a finished source refresh.
func RecordRefresh(result string, seconds float64) {
	SourceRefreshes.WithLabelValues(result).Inc()
	RefreshDuration.Observe(seconds)
}

// RecordPass records a refresh pass and how many sources it skipped.
func RecordPass(skipped int) {
	RefreshPasses.Inc()
	SkippedSources.Add(float64(skipped))
}
