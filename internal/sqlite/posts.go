package sqlite

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jdholdren/curator/internal/curator"
)

const postNamespace = "-pst"

// UpsertPosts writes the posts for a source. A post whose (source, link) is
// already cached is overwritten with the given fields; its id is kept. A row
// that would not change is left alone, updated_at included.
func (r Repo) UpsertPosts(ctx context.Context, sourceID string, posts []curator.Post) error {
	if len(posts) == 0 {
		return nil
	}

	rows := make([]curator.Post, len(posts))
	for i, p := range posts {
		p.ID = fmt.Sprintf("%s%s", uuid.NewString(), postNamespace)
		p.SourceID = sourceID
		p.PublishedAt = p.PublishedAt.UTC()
		rows[i] = p
	}

	const q = `INSERT INTO posts (id, source_id, link, guid, title, excerpt, content, published_at, source_label)
	VALUES (:id, :source_id, :link, :guid, :title, :excerpt, :content, :published_at, :source_label)
	ON CONFLICT(source_id, link) DO UPDATE SET
		guid = excluded.guid,
		title = excluded.title,
		excerpt = excluded.excerpt,
		content = excluded.content,
		published_at = excluded.published_at,
		source_label = excluded.source_label,
		updated_at = CURRENT_TIMESTAMP
	WHERE posts.guid IS NOT excluded.guid
		OR posts.title IS NOT excluded.title
		OR posts.excerpt IS NOT excluded.excerpt
		OR posts.content IS NOT excluded.content
		OR posts.published_at IS NOT excluded.published_at
		OR posts.source_label IS NOT excluded.source_label;`
	if _, err := r.db.NamedExecContext(ctx, q, rows); err != nil {
		return fmt.Errorf("error upserting posts: %s", err)
	}

	return nil
}

// DeletePostsNotIn evicts every post of the source outside of links.
//
// An empty links clears the source.
func (r Repo) DeletePostsNotIn(ctx context.Context, sourceID string, links []string) error {
	q := sq.Delete("posts").Where(sq.Eq{"source_id": sourceID})
	if len(links) > 0 {
		q = q.Where(sq.NotEq{"link": links})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("error deleting posts: %s", err)
	}

	return nil
}

func (r Repo) TrimPosts(ctx context.Context, sourceID string, keep int) error {
	if keep <= 0 {
		return nil
	}

	const q = `DELETE FROM posts WHERE source_id = ? AND id NOT IN (
		SELECT id FROM posts WHERE source_id = ? ORDER BY published_at DESC, id LIMIT ?
	);`
	if _, err := r.db.ExecContext(ctx, q, sourceID, sourceID, keep); err != nil {
		return fmt.Errorf("error trimming posts: %s", err)
	}

	return nil
}

// PostsBySource returns a page of a source's posts, newest first.
func (r Repo) PostsBySource(ctx context.Context, sourceID string, offset, limit int) ([]curator.Post, error) {
	const q = `SELECT * FROM posts WHERE source_id = ? ORDER BY published_at DESC, id LIMIT ? OFFSET ?;`

	posts := []curator.Post{}
	if err := r.db.SelectContext(ctx, &posts, q, sourceID, limit, offset); err != nil {
		return nil, fmt.Errorf("error selecting posts: %s", err)
	}

	return posts, nil
}

func (r Repo) CountPostsBySource(ctx context.Context, sourceID string) (int, error) {
	const q = `SELECT COUNT(*) FROM posts WHERE source_id = ?;`

	var count int
	if err := r.db.GetContext(ctx, &count, q, sourceID); err != nil {
		return 0, fmt.Errorf("error counting posts: %s", err)
	}

	return count, nil
}
