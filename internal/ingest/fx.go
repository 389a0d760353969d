package ingest

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("ingest",
	fx.Provide(
		NewWriter,
		NewRefresher,
		NewFleet,
		NewScheduler,
	),
)

type SchedulerParams struct {
	fx.In

	Config Config
	Fleet  *Fleet
}

// NewScheduler ties the scheduler to the application lifecycle.
func NewScheduler(lc fx.Lifecycle, p SchedulerParams) *Scheduler {
	s := newScheduler(p.Fleet, p.Config.Interval)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	})

	return s
}
