package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jdholdren/curator/internal/curator"
)

const sourceNamespace = "-src"

type sourceFeed struct {
	SourceID string `db:"source_id"`
	URL      string `db:"url"`
}

// AllSources retrieves _all_ sources, ordered by name, with their feeds.
func (r Repo) AllSources(ctx context.Context) ([]curator.Source, error) {
	const q = `SELECT * FROM sources ORDER BY name;`

	var srcs []curator.Source
	if err := r.db.SelectContext(ctx, &srcs, q); err != nil {
		return nil, fmt.Errorf("error selecting all sources: %s", err)
	}
	if err := r.attachFeeds(ctx, srcs); err != nil {
		return nil, err
	}

	return srcs, nil
}

func (r Repo) Source(ctx context.Context, id string) (curator.Source, error) {
	const q = `SELECT * FROM sources WHERE id = ?;`

	var src curator.Source
	err := r.db.GetContext(ctx, &src, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return curator.Source{}, fmt.Errorf("source %q: %w", id, curator.ErrNotFound)
	}
	if err != nil {
		return curator.Source{}, fmt.Errorf("error fetching source: %s", err)
	}

	srcs := []curator.Source{src}
	if err := r.attachFeeds(ctx, srcs); err != nil {
		return curator.Source{}, err
	}

	return srcs[0], nil
}

// Fills in FeedURLs, in curated order, for every given source.
func (r Repo) attachFeeds(ctx context.Context, srcs []curator.Source) error {
	if len(srcs) == 0 {
		return nil
	}

	ids := make([]string, len(srcs))
	for i, src := range srcs {
		ids[i] = src.ID
	}
	query, args, err := sq.Select("source_id", "url").
		From("source_feeds").
		Where(sq.Eq{"source_id": ids}).
		OrderBy("source_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}

	var feeds []sourceFeed
	if err := r.db.SelectContext(ctx, &feeds, query, args...); err != nil {
		return fmt.Errorf("error fetching source feeds: %s", err)
	}

	byID := make(map[string][]string, len(srcs))
	for _, f := range feeds {
		byID[f.SourceID] = append(byID[f.SourceID], f.URL)
	}
	for i := range srcs {
		srcs[i].FeedURLs = byID[srcs[i].ID]
	}

	return nil
}

// UpsertSource creates the source or updates the one with the same name,
// replacing its feed list.
func (r Repo) UpsertSource(ctx context.Context, src curator.Source) (curator.Source, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return curator.Source{}, fmt.Errorf("error starting transaction: %s", err)
	}
	defer tx.Rollback()

	const q = `INSERT INTO sources (id, name, handle, short_bio, website)
	VALUES (:id, :name, :handle, :short_bio, :website)
	ON CONFLICT(name) DO UPDATE SET
		handle = excluded.handle,
		short_bio = excluded.short_bio,
		website = excluded.website,
		updated_at = CURRENT_TIMESTAMP;`
	src.ID = fmt.Sprintf("%s%s", uuid.NewString(), sourceNamespace)
	if _, err := tx.NamedExecContext(ctx, q, src); err != nil {
		return curator.Source{}, fmt.Errorf("error upserting source: %s", err)
	}

	// On conflict the generated id was discarded
	var id string
	if err := tx.GetContext(ctx, &id, `SELECT id FROM sources WHERE name = ?;`, src.Name); err != nil {
		return curator.Source{}, fmt.Errorf("error fetching upserted source id: %s", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM source_feeds WHERE source_id = ?;`, id); err != nil {
		return curator.Source{}, fmt.Errorf("error clearing source feeds: %s", err)
	}
	if len(src.FeedURLs) > 0 {
		ins := sq.Insert("source_feeds").Columns("source_id", "position", "url")
		for i, u := range src.FeedURLs {
			ins = ins.Values(id, i, u)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return curator.Source{}, fmt.Errorf("error constructing sql: %s", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return curator.Source{}, fmt.Errorf("error inserting source feeds: %s", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return curator.Source{}, fmt.Errorf("error committing source: %s", err)
	}

	return r.Source(ctx, id)
}

func (r Repo) UpdateLastRefreshed(ctx context.Context, id string, at time.Time) error {
	query, args, err := sq.Update("sources").
		Set("last_refreshed_at", at.UTC()).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating last refreshed: %s", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("source %q: %w", id, curator.ErrNotFound)
	}

	return nil
}
