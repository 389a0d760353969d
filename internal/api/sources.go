package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jdholdren/curator/internal/curator"
	"github.com/jdholdren/curator/internal/serverutil"
)

const (
	defaultPostsLimit = 20
	maxPostsLimit     = 200
)

type (
	SourceResp struct {
		ID              string     `json:"id"`
		Name            string     `json:"name"`
		Handle          string     `json:"handle,omitempty"`
		ShortBio        string     `json:"short_bio,omitempty"`
		Website         string     `json:"website,omitempty"`
		FeedURLs        []string   `json:"feed_urls"`
		LastRefreshedAt *time.Time `json:"last_refreshed_at"`
		CreatedAt       time.Time  `json:"created_at"`
	}

	SourcesResp struct {
		Items []SourceResp `json:"items"`
	}

	PostResp struct {
		ID          string    `json:"id"`
		SourceID    string    `json:"source_id"`
		Title       string    `json:"title"`
		Link        string    `json:"link"`
		GUID        string    `json:"guid"`
		Excerpt     string    `json:"excerpt"`
		Content     string    `json:"content"`
		PublishedAt time.Time `json:"published_at"`
		SourceLabel string    `json:"source_label"`
	}

	PostsResp struct {
		Items []PostResp `json:"items"`
		pageMeta
	}
)

func sourceResp(src curator.Source) SourceResp {
	feeds := src.FeedURLs
	if feeds == nil {
		feeds = []string{}
	}

	return SourceResp{
		ID:              src.ID,
		Name:            src.Name,
		Handle:          src.Handle,
		ShortBio:        src.ShortBio,
		Website:         src.Website,
		FeedURLs:        feeds,
		LastRefreshedAt: src.LastRefreshedAt,
		CreatedAt:       src.CreatedAt,
	}
}

func postResp(p curator.Post) PostResp {
	return PostResp{
		ID:          p.ID,
		SourceID:    p.SourceID,
		Title:       p.Title,
		Link:        p.Link,
		GUID:        p.GUID,
		Excerpt:     p.Excerpt,
		Content:     p.Content,
		PublishedAt: p.PublishedAt,
		SourceLabel: p.SourceLabel,
	}
}

// Lists every source, ordered by name.
func (s *Server) getSources(w http.ResponseWriter, r *http.Request) error {
	srcs, err := s.sources.AllSources(r.Context())
	if err != nil {
		return err
	}

	resp := SourcesResp{Items: make([]SourceResp, len(srcs))}
	for i, src := range srcs {
		resp.Items[i] = sourceResp(src)
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) getSource(w http.ResponseWriter, r *http.Request) error {
	src, err := s.sources.Source(r.Context(), mux.Vars(r)["sourceID"])
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, sourceResp(src))
}

// A page of the source's cached posts, newest first.
func (s *Server) getSourcePosts(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx      = r.Context()
		sourceID = mux.Vars(r)["sourceID"]
	)

	// Unknown sources are a 404 rather than an empty page.
	if _, err := s.sources.Source(ctx, sourceID); err != nil {
		return err
	}

	page, limit := parsePageParams(r, defaultPostsLimit, maxPostsLimit)

	total, err := s.posts.CountPostsBySource(ctx, sourceID)
	if err != nil {
		return err
	}
	posts, err := s.posts.PostsBySource(ctx, sourceID, (page-1)*limit, limit)
	if err != nil {
		return err
	}

	resp := PostsResp{
		Items:    make([]PostResp, len(posts)),
		pageMeta: calculatePageMeta(page, limit, total),
	}
	for i, p := range posts {
		resp.Items[i] = postResp(p)
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}
