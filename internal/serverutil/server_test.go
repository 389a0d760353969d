package serverutil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/curator/internal/curator"
	curerrs "github.com/jdholdren/curator/internal/errors"
)

func TestHandlerFuncE(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "not found",
			err:        fmt.Errorf("error getting source: %w", curator.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"message":"error getting source: resource not found","status":404}`,
		},
		{
			name:       "structured",
			err:        curerrs.E(http.StatusBadRequest, "bad page", curerrs.Detail{Field: "page", Error: "must be a number"}),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"message":"bad page","details":[{"field":"page","error":"must be a number"}],"status":400}`,
		},
		{
			name:       "anything else",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"message":"internal server error","status":500}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				rec = httptest.NewRecorder()
				req = httptest.NewRequest(http.MethodGet, "/", nil)
				h   = HandlerFuncE(func(http.ResponseWriter, *http.Request) error { return tt.err })
			)
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestHandlerFuncE_Success(t *testing.T) {
	var (
		rec = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/", nil)
		h   = HandlerFuncE(func(w http.ResponseWriter, _ *http.Request) error {
			return WriteJSON(w, http.StatusCreated, map[string]string{"hello": "world"})
		})
	)
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"world"}`, rec.Body.String())
}

func TestErrRouter_AccessLog(t *testing.T) {
	r := ErrRouter{Router: mux.NewRouter()}
	r.Use(AccessLogMiddleware)
	r.HandleFuncE("/things/{id}", func(w http.ResponseWriter, r *http.Request) error {
		return WriteJSON(w, http.StatusOK, map[string]string{"id": mux.Vars(r)["id"]})
	}).Methods(http.MethodGet)

	var (
		rec = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/things/42", nil)
	)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"42"}`, rec.Body.String())
}
