package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/curator/internal/metrics"
)

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test RSS Feed</title>
    <description>A test RSS feed</description>
    <link>https://example.com</link>
    <item>
      <title>RSS Post One</title>
      <link>https://example.com/post-1</link>
      <guid>rss-guid-1</guid>
      <description>&lt;p&gt;First &lt;b&gt;RSS&lt;/b&gt; post &amp;amp; more&lt;/p&gt;</description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>RSS Post Two</title>
      <link>https://example.com/post-2</link>
      <guid>rss-guid-2</guid>
      <description>Second RSS post description</description>
      <pubDate>Tue, 02 Jan 2024 12:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

const testAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com" rel="alternate"/>
  <entry>
    <title>Atom Post One</title>
    <id>atom-id-1</id>
    <link href="https://example.com/atom-1" rel="alternate"/>
    <summary>First Atom post summary</summary>
    <updated>2024-01-01T12:00:00Z</updated>
  </entry>
  <entry>
    <title>Atom Post Two</title>
    <id>atom-id-2</id>
    <link href="https://example.com/atom-2" rel="alternate"/>
    <content type="html">&lt;p&gt;Second Atom post content body&lt;/p&gt;</content>
    <published>2024-01-02T12:00:00Z</published>
  </entry>
</feed>`

// No feed title, no entry title, no link, no date.
const testBareFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <item>
      <guid>bare-guid</guid>
      <description>Just a body</description>
    </item>
  </channel>
</rss>`

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

// Records every request made to it, in order.
type recorder struct {
	mu   sync.Mutex
	reqs []recordedReq
}

type recordedReq struct {
	path string
	raw  bool
}

func (rec *recorder) record(r *http.Request) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.reqs = append(rec.reqs, recordedReq{
		path: r.URL.Path,
		raw:  r.Header.Get("Accept") == rawAccept,
	})
}

func (rec *recorder) all() []recordedReq {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	return append([]recordedReq(nil), rec.reqs...)
}

func TestFetch_RSS(t *testing.T) {
	srv := serveFeed(t, testRSSFeed)

	items := New(Config{}).Fetch(context.Background(), srv.URL)
	require.Len(t, items, 2)

	assert.Equal(t, "RSS Post One", items[0].Title)
	assert.Equal(t, "https://example.com/post-1", items[0].Link)
	assert.Equal(t, "rss-guid-1", items[0].GUID)
	assert.Equal(t, "First RSS post & more", items[0].Excerpt)
	assert.Contains(t, items[0].Content, "<b>RSS</b>")
	assert.Equal(t, "Test RSS Feed", items[0].SourceLabel)
	assert.True(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Equal(items[0].PublishedAt))

	assert.Equal(t, "rss-guid-2", items[1].GUID)
	assert.Equal(t, "Second RSS post description", items[1].Excerpt)
}

func TestFetch_Atom(t *testing.T) {
	srv := serveFeed(t, testAtomFeed)

	items := New(Config{}).Fetch(context.Background(), srv.URL)
	require.Len(t, items, 2)

	// Summary only
	assert.Equal(t, "atom-id-1", items[0].GUID)
	assert.Equal(t, "https://example.com/atom-1", items[0].Link)
	assert.Equal(t, "First Atom post summary", items[0].Excerpt)
	assert.Equal(t, "First Atom post summary", items[0].Content)
	assert.True(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Equal(items[0].PublishedAt))

	// Content only
	assert.Equal(t, "Second Atom post content body", items[1].Excerpt)
	assert.Contains(t, items[1].Content, "Second Atom post content body")
	assert.True(t, time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC).Equal(items[1].PublishedAt))
	assert.Equal(t, "Test Atom Feed", items[1].SourceLabel)
}

func TestFetch_Defaults(t *testing.T) {
	var (
		srv       = serveFeed(t, testBareFeed)
		fetchedAt = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
		f         = New(Config{})
	)
	f.now = func() time.Time { return fetchedAt }

	items := f.Fetch(context.Background(), srv.URL)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "Untitled", item.Title)
	assert.Equal(t, "bare-guid", item.Link, "link falls back to the guid")
	assert.Equal(t, "bare-guid", item.GUID)
	assert.Equal(t, fetchedAt, item.PublishedAt, "missing date is the fetch time")
	assert.False(t, item.PublishedAt.IsZero())
	assert.Equal(t, srv.URL, item.SourceLabel, "label falls back to the requested url")
	assert.Equal(t, "Just a body", item.Excerpt)
	assert.Equal(t, "Just a body", item.Content)
}

func TestFetch_FallsBackToFeedXMLVariant(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		if r.URL.Path != "/blog/feed.xml" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(testRSSFeed))
	}))
	defer srv.Close()

	items := New(Config{}).Fetch(context.Background(), srv.URL+"/blog")
	require.Len(t, items, 2)
	assert.Equal(t, "Test RSS Feed", items[0].SourceLabel)

	assert.Equal(t, []recordedReq{
		{path: "/blog"},
		{path: "/blog/"},
		{path: "/blog/feed"},
		{path: "/blog/feed.xml"},
	}, rec.all(), "stops at feed.xml and never falls back to raw requests")
}

func TestFetch_RawFallback(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		// A server that refuses anything asking for a feed type
		if r.Header.Get("Accept") != rawAccept || r.URL.Path != "/blog" {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("\xef\xbb\xbf\n  " + testAtomFeed))
	}))
	defer srv.Close()

	items := New(Config{}).Fetch(context.Background(), srv.URL+"/blog")
	require.Len(t, items, 2)
	assert.Equal(t, "atom-id-1", items[0].GUID)

	reqs := rec.all()
	require.Len(t, reqs, 6)
	for _, r := range reqs[:5] {
		assert.False(t, r.raw)
	}
	assert.Equal(t, recordedReq{path: "/blog", raw: true}, reqs[5])
}

func TestFetch_NeverRepeatsARequest(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Write([]byte("<html><body>not a feed</body></html>"))
	}))
	defer srv.Close()

	items := New(Config{}).Fetch(context.Background(), srv.URL+"/blog")
	assert.Empty(t, items)

	reqs := rec.all()
	assert.Len(t, reqs, 10, "five urls, two strategies each")
	seen := map[recordedReq]bool{}
	for _, r := range reqs {
		assert.False(t, seen[r], "repeated request %+v", r)
		seen[r] = true
	}
}

func TestFetch_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL + "/feed"
	srv.Close()

	var (
		failed    = testutil.ToFloat64(metrics.FeedFetches.WithLabelValues("failed"))
		feedErrs  = testutil.ToFloat64(metrics.FetchAttempts.WithLabelValues(string(strategyFeed), metrics.AttemptError))
		rawErrs   = testutil.ToFloat64(metrics.FetchAttempts.WithLabelValues(string(strategyRaw), metrics.AttemptError))
		items     = New(Config{Timeout: time.Second}).Fetch(context.Background(), u)
		attempted = len(Variants(u)) + 1
	)
	assert.Empty(t, items)

	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.FeedFetches.WithLabelValues("failed")))
	assert.Equal(t, feedErrs+float64(attempted), testutil.ToFloat64(metrics.FetchAttempts.WithLabelValues(string(strategyFeed), metrics.AttemptError)))
	assert.Equal(t, rawErrs+float64(attempted), testutil.ToFloat64(metrics.FetchAttempts.WithLabelValues(string(strategyRaw), metrics.AttemptError)))
}

func TestFetch_AttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	items := New(Config{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), srv.URL)
	assert.Empty(t, items)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetch_EmptyURL(t *testing.T) {
	assert.Empty(t, New(Config{}).Fetch(context.Background(), ""))
}

func TestVariants(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []string
	}{
		{
			name: "no trailing slash",
			url:  "https://example.com/blog",
			want: []string{
				"https://example.com/blog/",
				"https://example.com/blog/feed",
				"https://example.com/blog/feed.xml",
				"https://example.com/blog/rss.xml",
			},
		},
		{
			name: "trailing slash",
			url:  "https://example.com/",
			want: []string{
				"https://example.com/feed",
				"https://example.com/feed.xml",
				"https://example.com/rss.xml",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Variants(tt.url))
		})
	}
}
