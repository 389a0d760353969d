// Package curator holds the domain types shared by the ingestion pipeline,
// the cache store and the HTTP surface.
package curator

import (
	"context"
	"errors"
	"time"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")
)

type (
	// Source is a curated content origin with one or more feeds to track.
	Source struct {
		ID              string     `db:"id"`
		Name            string     `db:"name"`
		Handle          string     `db:"handle"`
		ShortBio        string     `db:"short_bio"`
		Website         string     `db:"website"`
		LastRefreshedAt *time.Time `db:"last_refreshed_at"`
		CreatedAt       time.Time  `db:"created_at"`
		UpdatedAt       time.Time  `db:"updated_at"`

		// Ordered as curated. Stored in its own table.
		FeedURLs []string `db:"-"`
	}

	// Item is a feed entry after field defaulting, before it is cached.
	Item struct {
		SourceID    string
		Title       string
		Link        string
		GUID        string
		Excerpt     string
		Content     string
		PublishedAt time.Time
		SourceLabel string
	}

	// Post is the cached projection of an Item, unique per (SourceID, Link).
	Post struct {
		ID          string    `db:"id"`
		SourceID    string    `db:"source_id"`
		Link        string    `db:"link"`
		GUID        string    `db:"guid"`
		Title       string    `db:"title"`
		Excerpt     string    `db:"excerpt"`
		Content     string    `db:"content"`
		PublishedAt time.Time `db:"published_at"`
		SourceLabel string    `db:"source_label"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	SourceStore interface {
		AllSources(ctx context.Context) ([]Source, error)
		Source(ctx context.Context, id string) (Source, error)
		UpsertSource(ctx context.Context, src Source) (Source, error)
		UpdateLastRefreshed(ctx context.Context, id string, at time.Time) error
	}

	PostStore interface {
		// Inserts or fully overwrites the posts keyed by (sourceID, link).
		UpsertPosts(ctx context.Context, sourceID string, posts []Post) error
		// Removes every post of the source whose link is not in links.
		DeletePostsNotIn(ctx context.Context, sourceID string, links []string) error
		// Keeps only the newest keep posts of the source.
		TrimPosts(ctx context.Context, sourceID string, keep int) error
		PostsBySource(ctx context.Context, sourceID string, offset, limit int) ([]Post, error)
		CountPostsBySource(ctx context.Context, sourceID string) (int, error)
	}

	// Repository is everything the sqlite implementation provides.
	Repository interface {
		SourceStore
		PostStore
	}
)

// Post projects the item into its cached shape.
func (i Item) Post() Post {
	return Post{
		SourceID:    i.SourceID,
		Link:        i.Link,
		GUID:        i.GUID,
		Title:       i.Title,
		Excerpt:     i.Excerpt,
		Content:     i.Content,
		PublishedAt: i.PublishedAt,
		SourceLabel: i.SourceLabel,
	}
}

// DedupeKey is the identity used to collapse the same entry seen on several feeds:
// the guid, else the link, else the title.
func (i Item) DedupeKey() string {
	switch {
	case i.GUID != "":
		return i.GUID
	case i.Link != "":
		return i.Link
	default:
		return i.Title
	}
}
