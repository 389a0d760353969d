package ingest

import (
	"context"
	"fmt"

	"github.com/jdholdren/curator/internal/curator"
)

// Writer makes the cached posts of a source equal to a retained window.
type Writer struct {
	posts   curator.PostStore
	hardCap int
}

func NewWriter(posts curator.PostStore, cfg Config) *Writer {
	cfg = cfg.withDefaults()

	return &Writer{
		posts:   posts,
		hardCap: cfg.HardCap,
	}
}

// Commit upserts the items keyed by link, evicts every other post of the
// source and then trims the source down to the hard cap.
//
// Items without a link cannot be keyed and are skipped. When a link shows
// up twice the first item is kept. A window with nothing keyable clears the
// source.
//
// Running it twice with the same items leaves the cache as after the first.
func (w *Writer) Commit(ctx context.Context, sourceID string, items []curator.Item) error {
	var (
		seen  = make(map[string]struct{}, len(items))
		posts = make([]curator.Post, 0, len(items))
		links = make([]string, 0, len(items))
	)
	for _, it := range items {
		if it.Link == "" {
			continue
		}
		if _, ok := seen[it.Link]; ok {
			continue
		}
		seen[it.Link] = struct{}{}

		p := it.Post()
		p.SourceID = sourceID
		posts = append(posts, p)
		links = append(links, it.Link)
	}

	if err := w.posts.UpsertPosts(ctx, sourceID, posts); err != nil {
		return fmt.Errorf("error upserting posts: %w", err)
	}
	if err := w.posts.DeletePostsNotIn(ctx, sourceID, links); err != nil {
		return fmt.Errorf("error evicting posts: %w", err)
	}
	if err := w.posts.TrimPosts(ctx, sourceID, w.hardCap); err != nil {
		return fmt.Errorf("error trimming posts: %w", err)
	}

	return nil
}
