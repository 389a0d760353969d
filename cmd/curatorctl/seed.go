package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/jdholdren/curator/internal/curator"
	"github.com/jdholdren/curator/internal/logger"
	"github.com/jdholdren/curator/internal/migrations"
	"github.com/jdholdren/curator/internal/seed"
	"github.com/jdholdren/curator/internal/sqlite"
)

type seedConfig struct {
	Database string `env:"DATABASE, required"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

func newSeedCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Upsert curated sources from a YAML file, matching them by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("error opening seed file: %w", err)
			}
			defer f.Close()

			srcs, err := seed.Load(f)
			if err != nil {
				return err
			}
			if dryRun {
				for _, src := range srcs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d feeds\n", src.Name, len(src.FeedURLs))
				}
				return nil
			}

			ctx := cmd.Context()
			var cfg seedConfig
			if err := envconfig.Process(ctx, &cfg); err != nil {
				return fmt.Errorf("error parsing config: %w", err)
			}
			slog.SetDefault(logger.New(cfg.LoggerFormat))

			dbx, err := sqlite.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("error opening database: %w", err)
			}
			defer dbx.Close()

			if err := migrations.Run(dbx); err != nil {
				return fmt.Errorf("error running migrations: %w", err)
			}

			return upsertAll(ctx, sqlite.New(dbx), srcs, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without touching the database")

	return cmd
}

func upsertAll(ctx context.Context, store curator.SourceStore, srcs []curator.Source, out io.Writer) error {
	for _, src := range srcs {
		saved, err := store.UpsertSource(ctx, src)
		if err != nil {
			return fmt.Errorf("error upserting source %q: %w", src.Name, err)
		}

		slog.InfoContext(ctx, "seeded source", "source_id", saved.ID, "name", saved.Name, "feeds", len(saved.FeedURLs))
		fmt.Fprintf(out, "%s\t%s\n", saved.ID, saved.Name)
	}

	return nil
}
