// Package worker runs the refresh pipeline on Temporal: a schedule starts the
// RefreshAll workflow, which refreshes every source as its own activity.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/jdholdren/curator/internal/curator"
	"github.com/jdholdren/curator/internal/ingest"
)

const TaskQueue = "curator"

// NewWorker sets up the worker with registration of workflows, activities, and the refresh schedule.
func NewWorker(ctx context.Context, cli client.Client, sources curator.SourceStore, refresher *ingest.Refresher, interval time.Duration) (worker.Worker, error) {
	a := activities{
		sources:   sources,
		refresher: refresher,
	}

	w := worker.New(cli, TaskQueue, worker.Options{})

	// Workflows
	wfs := workflows{}
	w.RegisterWorkflow(wfs.RefreshAll)

	// Activities
	w.RegisterActivity(&a)

	if err := EnsureSchedule(ctx, cli.ScheduleClient(), interval); err != nil {
		return nil, fmt.Errorf("error ensuring refresh schedule: %w", err)
	}

	return w, nil
}
