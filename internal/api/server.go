package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/jdholdren/curator/internal/curator"
	_ "github.com/jdholdren/curator/internal/metrics" // registers the pipeline collectors
	"github.com/jdholdren/curator/internal/serverutil"
)

type (
	// Server answers read requests for sources and their cached posts.
	Server struct {
		*http.Server

		sources curator.SourceStore
		posts   curator.PostStore
		now     func() time.Time
	}

	ServerConfig struct {
		Port       int
		CorsOrigin string
	}

	Params struct {
		fx.In

		Config  ServerConfig
		Sources curator.SourceStore
		Posts   curator.PostStore
	}
)

func NewServer(lc fx.Lifecycle, p Params) *Server {
	srvr := newServer(p.Config, p.Sources, p.Posts)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srvr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("error listening", "error", err)
				}
			}()

			slog.Info("started api server", "port", p.Config.Port)

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srvr.Shutdown(ctx)
		},
	})

	return srvr
}

func newServer(config ServerConfig, sources curator.SourceStore, posts curator.PostStore) *Server {
	if config.CorsOrigin == "" {
		config.CorsOrigin = "*"
	}

	r := serverutil.ErrRouter{Router: mux.NewRouter()}
	srvr := &Server{
		sources: sources,
		posts:   posts,
		now:     time.Now,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsOrigin}),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything
	r.HandleFuncE("/api/health", srvr.getHealth).Methods(http.MethodGet)
	r.HandleFuncE("/api/sources", srvr.getSources).Methods(http.MethodGet)
	r.HandleFuncE("/api/sources/{sourceID}", srvr.getSource).Methods(http.MethodGet)
	r.HandleFuncE("/api/sources/{sourceID}/posts", srvr.getSourcePosts).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	slog.Debug("configured api server", "port", config.Port)

	return srvr
}

type HealthResp struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) error {
	return serverutil.WriteJSON(w, http.StatusOK, HealthResp{
		Status: "ok",
		Time:   s.now().UTC(),
	})
}
