package api

import (
	"math"
	"net/http"
	"strconv"
)

// pageMeta holds pagination metadata for API responses.
type pageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// parsePageParams parses page-based pagination parameters (?page=2&limit=20).
//
// A missing or unparseable page is the first one, and page is capped so that
// its offset fits in an int. A missing, unparseable or zero limit is
// defaultLimit; anything else is clamped to [1, maxLimit].
func parsePageParams(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt / maxLimit; page > maxPage {
		page = maxPage
	}

	limit, _ := strconv.Atoi(query.Get("limit"))
	switch {
	case limit == 0:
		limit = defaultLimit
	case limit < 1:
		limit = 1
	case limit > maxLimit:
		limit = maxLimit
	}

	return page, limit
}

// calculatePageMeta builds pagination metadata for responses.
func calculatePageMeta(page, limit, total int) pageMeta {
	return pageMeta{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}
