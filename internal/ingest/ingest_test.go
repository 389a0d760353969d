package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jdholdren/curator/internal/curator"
	"github.com/jdholdren/curator/internal/migrations"
	"github.com/jdholdren/curator/internal/sqlite"
)

var base = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) sqlite.Repo {
	t.Helper()

	dbx, err := sqlite.Open(filepath.Join(t.TempDir(), "curator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))

	return sqlite.New(dbx)
}

func seedSource(t *testing.T, repo sqlite.Repo, name string, feeds ...string) curator.Source {
	t.Helper()

	src, err := repo.UpsertSource(context.Background(), curator.Source{Name: name, FeedURLs: feeds})
	require.NoError(t, err)

	return src
}

func cachedLinks(t *testing.T, repo sqlite.Repo, sourceID string) []string {
	t.Helper()

	posts, err := repo.PostsBySource(context.Background(), sourceID, 0, 1000)
	require.NoError(t, err)

	links := make([]string, len(posts))
	for i, p := range posts {
		links[i] = p.Link
	}

	return links
}

func item(link string, published time.Time) curator.Item {
	return curator.Item{
		Title:       "Post " + link,
		Link:        link,
		GUID:        link,
		Excerpt:     "excerpt",
		Content:     "<p>content</p>",
		PublishedAt: published,
		SourceLabel: "Feed",
	}
}

// Returns n items linked prefix-0..prefix-(n-1), the i-th published
// i*step hours after start.
func items(prefix string, n int, start time.Time, step int) []curator.Item {
	out := make([]curator.Item, n)
	for i := range out {
		out[i] = item(fmt.Sprintf("https://example.com/%s-%d", prefix, i), start.Add(time.Duration(i*step)*time.Hour))
	}

	return out
}

// fakeFetcher serves canned items per URL.
type fakeFetcher struct {
	mu      sync.Mutex
	feeds   map[string][]curator.Item
	calls   map[string]int
	active  int
	maxSeen int

	// Called before answering, outside of the lock.
	hook func(feedURL string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		feeds: make(map[string][]curator.Item),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) set(feedURL string, items []curator.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.feeds[feedURL] = items
}

func (f *fakeFetcher) Fetch(ctx context.Context, feedURL string) []curator.Item {
	f.mu.Lock()
	f.calls[feedURL]++
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	hook := f.hook
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if hook != nil {
		hook(feedURL)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]curator.Item(nil), f.feeds[feedURL]...)
}

func (f *fakeFetcher) callCount(feedURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[feedURL]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	for _, c := range f.calls {
		n += c
	}

	return n
}

func (f *fakeFetcher) maxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.maxSeen
}

// failingSources is a registry that is never reachable.
type failingSources struct {
	curator.SourceStore
}

func (failingSources) AllSources(context.Context) ([]curator.Source, error) {
	return nil, errors.New("registry unavailable")
}

func newPipeline(repo sqlite.Repo, fetcher Fetcher, cfg Config) (*Refresher, *Fleet) {
	var (
		w = NewWriter(repo, cfg)
		r = NewRefresher(fetcher, repo, w, cfg)
	)

	return r, NewFleet(repo, r, cfg)
}
