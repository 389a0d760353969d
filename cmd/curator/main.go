// Curator keeps a local cache of the latest posts of every curated source
// and serves it over HTTP.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/sethvargo/go-envconfig"
	"go.uber.org/fx"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/curator/internal/api"
	"github.com/jdholdren/curator/internal/curator"
	"github.com/jdholdren/curator/internal/fetch"
	"github.com/jdholdren/curator/internal/ingest"
	"github.com/jdholdren/curator/internal/logger"
	"github.com/jdholdren/curator/internal/migrations"
	"github.com/jdholdren/curator/internal/sqlite"
)

type config struct {
	Database string `env:"DATABASE, required"`
	Port     int    `env:"PORT, default=4444"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
	CorsOrigin   string `env:"CORS_ORIGIN, default=*"`

	RefreshInterval   time.Duration `env:"REFRESH_INTERVAL, default=15m"`
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT, default=10s"`
	FetchUserAgent    string        `env:"FETCH_USER_AGENT"`
	FetchHostInterval time.Duration `env:"FETCH_HOST_INTERVAL, default=0s"`
	RetainedWindow    int           `env:"RETAINED_WINDOW, default=50"`
	HardCap           int           `env:"HARD_CAP, default=200"`
	FleetConcurrency  int           `env:"FLEET_CONCURRENCY, default=0"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(logger.New(cfg.LoggerFormat))

	// Connect to the sqlite db
	dbx, err := sqlite.Open(cfg.Database)
	if err != nil {
		log.Fatalf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Run all migrations
	if err := migrations.Run(dbx); err != nil {
		log.Fatalf("error running migrations: %s", err)
	}

	repo := sqlite.New(dbx)

	// Start the application
	fx.New(
		fx.Supply(
			api.ServerConfig{
				Port:       cfg.Port,
				CorsOrigin: cfg.CorsOrigin,
			},
			fetch.Config{
				Timeout:      cfg.FetchTimeout,
				UserAgent:    cfg.FetchUserAgent,
				HostInterval: cfg.FetchHostInterval,
			},
			ingest.Config{
				Interval:       cfg.RefreshInterval,
				RetainedWindow: cfg.RetainedWindow,
				HardCap:        cfg.HardCap,
				Concurrency:    cfg.FleetConcurrency,
			},
			fx.Annotate(repo, fx.As(new(curator.SourceStore))),
			fx.Annotate(repo, fx.As(new(curator.PostStore))),
		),
		fx.Provide(
			fx.Annotate(fetch.New, fx.As(new(ingest.Fetcher))),
		),
		ingest.Module,
		api.Module,
		fx.Invoke(func(*api.Server, *ingest.Scheduler) {}), // Start serving and refreshing
	).Run()
}
