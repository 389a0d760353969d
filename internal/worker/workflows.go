package worker

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

type workflows struct{}

// RefreshAll refreshes every source in parallel. A failing source is logged
// and does not fail the run.
func (workflows) RefreshAll(ctx workflow.Context) error {
	l := workflow.GetLogger(ctx)

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	})

	var ids []string
	if err := workflow.ExecuteActivity(listCtx, acts.AllSources).Get(ctx, &ids); err != nil {
		l.Error("failed to list sources", "error", err)
		return err
	}

	// Every feed of a source can run through all of its fetch attempts.
	refreshCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumAttempts:        2,
			NonRetryableErrorTypes: []string{errTypeNotFound},
		},
	})

	wg := workflow.NewWaitGroup(ctx)
	wg.Add(len(ids))
	for _, id := range ids {
		id := id
		workflow.Go(ctx, func(ctx workflow.Context) {
			defer wg.Done()

			if err := workflow.ExecuteActivity(refreshCtx, acts.RefreshSource, id).Get(ctx, nil); err != nil {
				l.Error("failed to refresh source", "source_id", id, "error", err)
			}
		})
	}

	wg.Wait(ctx)
	l.Info("refreshed all sources", "count", len(ids))

	return nil
}
