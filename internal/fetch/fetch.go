// Package fetch turns a feed URL into canonical items, trying a fixed
// sequence of request strategies and URL variants before giving up.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/mmcdole/gofeed"

	"github.com/jdholdren/curator/internal/curator"
	"github.com/jdholdren/curator/internal/metrics"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "curator/1.0 (+feed ingestion)"
	maxBodyBytes     = 10 << 20

	feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"
	rawAccept  = "text/html, application/xhtml+xml, */*;q=0.8"
)

// Suffixes appended to a feed URL when the URL itself doesn't parse.
var variantSuffixes = []string{"/feed", "/feed.xml", "/rss.xml"}

type strategy string

const (
	// Feed-typed request, parsed by gofeed straight off the response.
	strategyFeed strategy = "feed"
	// Plain GET whose body is read and then parsed as a feed.
	strategyRaw strategy = "raw"
)

type attempt struct {
	strategy strategy
	url      string
}

type (
	Config struct {
		// Per attempt.
		Timeout   time.Duration
		UserAgent string
		// Minimum spacing between requests to the same host; 0 disables it.
		HostInterval time.Duration
	}

	// Fetcher is safe for concurrent use.
	Fetcher struct {
		client    *http.Client
		timeout   time.Duration
		userAgent string
		limiter   *hostLimiter
		now       func() time.Time
	}
)

func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: acceptTransport{inner: http.DefaultTransport},
		},
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		limiter:   newHostLimiter(cfg.HostInterval),
		now:       time.Now,
	}
}

// Fetch returns the normalized items of the feed at feedURL.
//
// Strategies are tried in order and the first one producing at least one
// item wins: the URL as a feed, each variant as a feed, the URL's raw body,
// then each variant's raw body. Total failure yields no items, never an error.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) []curator.Item {
	if feedURL == "" {
		return nil
	}

	var (
		tried = make(map[attempt]struct{})
		urls  = append([]string{feedURL}, Variants(feedURL)...)
	)
	for _, s := range []strategy{strategyFeed, strategyRaw} {
		for _, u := range urls {
			a := attempt{strategy: s, url: u}
			if _, ok := tried[a]; ok {
				continue
			}
			tried[a] = struct{}{}

			items, err := f.try(ctx, a)
			if err != nil {
				metrics.RecordAttempt(string(s), metrics.AttemptError)
				slog.DebugContext(ctx, "feed attempt failed", "strategy", s, "url", u, "error", err)
				continue
			}
			if len(items) == 0 {
				metrics.RecordAttempt(string(s), metrics.AttemptEmpty)
				continue
			}

			metrics.RecordAttempt(string(s), metrics.AttemptOK)
			metrics.RecordFeedFetch(true)
			slog.DebugContext(ctx, "feed attempt succeeded", "strategy", s, "url", u, "items", len(items))
			return items
		}
	}

	metrics.RecordFeedFetch(false)
	slog.WarnContext(ctx, "all feed attempts failed", "feed_url", feedURL)
	return nil
}

// Variants lists the alternative URLs tried for feedURL, in order.
func Variants(feedURL string) []string {
	var (
		base     = strings.TrimSuffix(feedURL, "/")
		variants []string
	)
	if !strings.HasSuffix(feedURL, "/") {
		variants = append(variants, feedURL+"/")
	}
	for _, suffix := range variantSuffixes {
		variants = append(variants, base+suffix)
	}

	return variants
}

func (f *Fetcher) try(ctx context.Context, a attempt) ([]curator.Item, error) {
	if err := f.limiter.wait(ctx, a.url); err != nil {
		return nil, fmt.Errorf("error waiting for host: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var (
		feed   *gofeed.Feed
		err    error
		parser = f.newParser()
	)
	switch a.strategy {
	case strategyFeed:
		feed, err = parser.ParseURLWithContext(a.url, ctx)
	case strategyRaw:
		var body []byte
		body, err = f.get(ctx, a.url)
		if err == nil {
			feed, err = parser.Parse(bytes.NewReader(trimPreamble(body)))
		}
	default:
		err = fmt.Errorf("unknown strategy %q", a.strategy)
	}
	if err != nil {
		return nil, err
	}

	return normalize(feed, a.url, f.now()), nil
}

// gofeed parsers keep per-parse state, so every attempt gets its own.
func (f *Fetcher) newParser() *gofeed.Parser {
	p := gofeed.NewParser()
	p.Client = f.client
	p.UserAgent = f.userAgent

	return p
}

func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", rawAccept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error getting url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	return body, nil
}

// Strips a UTF-8 byte order mark and leading whitespace, both of which
// break XML detection.
func trimPreamble(body []byte) []byte {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	return bytes.TrimLeftFunc(body, unicode.IsSpace)
}

// Sets a feed-flavoured Accept header on requests that don't carry one.
type acceptTransport struct {
	inner http.RoundTripper
}

func (t acceptTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("Accept") == "" {
		r = r.Clone(r.Context())
		r.Header.Set("Accept", feedAccept)
	}

	return t.inner.RoundTrip(r)
}
