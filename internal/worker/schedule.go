package worker

import (
	"context"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

const scheduleID = "refresh_all"

// EnsureSchedule creates the refresh schedule, or brings an existing one in
// line with interval.
//
// A run still going when the next one is due makes the next one skip.
func EnsureSchedule(ctx context.Context, sc client.ScheduleClient, interval time.Duration) error {
	handle := sc.GetHandle(ctx, scheduleID)
	if _, err := handle.Describe(ctx); err != nil {
		_, err = sc.Create(ctx, client.ScheduleOptions{
			ID: scheduleID,
			Spec: client.ScheduleSpec{
				Intervals: []client.ScheduleIntervalSpec{{Every: interval}},
			},
			Action: &client.ScheduleWorkflowAction{
				ID:        scheduleID,
				Workflow:  workflows{}.RefreshAll,
				TaskQueue: TaskQueue,
			},
			Overlap:            enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
			TriggerImmediately: true,
		})

		return err
	}

	return handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			sched := input.Description.Schedule
			sched.Spec = &client.ScheduleSpec{
				Intervals: []client.ScheduleIntervalSpec{{Every: interval}},
			}
			if sched.Policy == nil {
				sched.Policy = &client.SchedulePolicies{}
			}
			sched.Policy.Overlap = enumspb.SCHEDULE_OVERLAP_POLICY_SKIP

			return &client.ScheduleUpdate{
				Schedule: &sched,
			}, nil
		},
	})
}
