package fetch

import (
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/jdholdren/curator/internal/curator"
)

const (
	untitled      = "Untitled"
	maxSnippetLen = 2048
)

var stripPolicy = bluemonday.StrictPolicy()

// Maps every entry of the feed onto an item. The fallback order of each
// field decides the dedupe key later on, so it must not be reordered.
func normalize(feed *gofeed.Feed, requestedURL string, fetchedAt time.Time) []curator.Item {
	if feed == nil {
		return nil
	}

	label := strings.TrimSpace(feed.Title)
	if label == "" {
		label = requestedURL
	}

	items := make([]curator.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		items = append(items, normalizeEntry(entry, label, fetchedAt))
	}

	return items
}

func normalizeEntry(entry *gofeed.Item, label string, fetchedAt time.Time) curator.Item {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = untitled
	}

	link := entry.Link
	if link == "" {
		link = firstNonEmpty(entry.Links...)
	}
	if link == "" {
		link = entry.GUID
	}

	published := fetchedAt
	switch {
	case entry.PublishedParsed != nil && !entry.PublishedParsed.IsZero():
		published = *entry.PublishedParsed
	case entry.UpdatedParsed != nil && !entry.UpdatedParsed.IsZero():
		published = *entry.UpdatedParsed
	}

	var (
		summary = entry.Description
		excerpt = firstNonEmpty(snippet(firstNonEmpty(entry.Content, summary)), summary)
		content = firstNonEmpty(entry.Content, summary)
		guid    = firstNonEmpty(entry.GUID, link)
	)

	return curator.Item{
		Title:       title,
		Link:        link,
		GUID:        guid,
		Excerpt:     excerpt,
		Content:     content,
		PublishedAt: published,
		SourceLabel: label,
	}
}

// Plain text version of some html: tags removed, entities decoded and
// whitespace collapsed. Capped so the excerpt stays short.
func snippet(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")

	return truncate(s, maxSnippetLen)
}

// Cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}
