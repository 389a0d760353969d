// Worker runs the refresh pipeline on Temporal instead of the in-process
// scheduler.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/curator/internal/fetch"
	"github.com/jdholdren/curator/internal/ingest"
	"github.com/jdholdren/curator/internal/logger"
	"github.com/jdholdren/curator/internal/migrations"
	"github.com/jdholdren/curator/internal/sqlite"
	"github.com/jdholdren/curator/internal/worker"
)

type config struct {
	Database          string `env:"DATABASE, required"`
	TemporalHostPort  string `env:"TEMPORAL_HOST_PORT, required"`
	TemporalNamespace string `env:"TEMPORAL_NAMESPACE, default=default"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`

	RefreshInterval   time.Duration `env:"REFRESH_INTERVAL, default=15m"`
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT, default=10s"`
	FetchUserAgent    string        `env:"FETCH_USER_AGENT"`
	FetchHostInterval time.Duration `env:"FETCH_HOST_INTERVAL, default=0s"`
	RetainedWindow    int           `env:"RETAINED_WINDOW, default=50"`
	HardCap           int           `env:"HARD_CAP, default=200"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	l := logger.New(cfg.LoggerFormat)
	slog.SetDefault(l)

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

	// Retry until temporal is ready
	var temporalCli client.Client
	if err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		c, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalHostPort,
			Namespace: cfg.TemporalNamespace,
			Logger:    tlog.NewStructuredLogger(l),
		})
		if err != nil {
			slog.Warn("temporal not ready", "error", err)
			return retry.RetryableError(err)
		}
		temporalCli = c

		return nil
	}); err != nil {
		log.Fatalln("Unable to create Temporal client:", err)
	}
	defer temporalCli.Close()

	if err := worker.EnsureNamespace(ctx, temporalCli.WorkflowService(), cfg.TemporalNamespace); err != nil {
		log.Fatalf("error ensuring namespace: %s", err)
	}

	var (
		ingestCfg = ingest.Config{
			Interval:       cfg.RefreshInterval,
			RetainedWindow: cfg.RetainedWindow,
			HardCap:        cfg.HardCap,
		}
		fetcher = fetch.New(fetch.Config{
			Timeout:      cfg.FetchTimeout,
			UserAgent:    cfg.FetchUserAgent,
			HostInterval: cfg.FetchHostInterval,
		})
		refresher = ingest.NewRefresher(fetcher, repo, ingest.NewWriter(repo, ingestCfg), ingestCfg)
	)

	w, err := worker.NewWorker(ctx, temporalCli, repo, refresher, cfg.RefreshInterval)
	if err != nil {
		log.Fatalf("error creating worker: %s", err)
	}

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	{
		stop := make(chan any)
		g.Add(func() error {
			slog.Info("starting worker", "task_queue", worker.TaskQueue)
			return w.Run(stop)
		}, func(error) {
			close(stop)
		})
	}

	err = g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) || errors.Is(err, context.Canceled) {
		slog.Info("worker stopped", "reason", err)
		return
	}
	if err != nil {
		slog.Error("error running worker", "error", err)
		os.Exit(1)
	}
}
