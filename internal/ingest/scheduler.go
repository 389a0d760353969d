package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"
)

// Scheduler runs a refresh pass when started and then on every interval.
type Scheduler struct {
	fleet    *Fleet
	interval time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	stopped bool
}

func newScheduler(fleet *Fleet, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		fleet:    fleet,
		interval: interval,
	}
}

// Start kicks off the first pass immediately and schedules the next ones.
//
// Passes outlive ctx's cancellation; they run until Stop. A stopped
// scheduler does not start again.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil || s.stopped {
		return
	}

	ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.cron = cron.New()
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		s.fleet.RunPass(ctx)
	}))

	s.fleet.RunPass(ctx)
	s.cron.Start()

	slog.InfoContext(ctx, "started refresh scheduler", "interval", s.interval)
}

// Stop cancels the ticker and in-flight refreshes, then waits for them to
// return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cron == nil {
		s.mu.Unlock()
		return
	}
	// cron.Stop doesn't wait for a job already running, so the fleet is
	// closed before waiting on it.
	s.cron.Stop()
	s.cancel()
	s.fleet.Close()
	s.cron = nil
	s.stopped = true
	s.mu.Unlock()

	s.fleet.Wait()
	slog.Info("stopped refresh scheduler")
}
