package coursesegments

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	processingPollInterval = 5 * time.Second
	blockedPollInterval    = 10 * time.Minute
	continueTickLimit      = 2000
	continueHistoryLimit   = 15000
)

// Workflow drives one course to completion by ticking synchronous scheduler
// passes. Each activity runs at most one pipeline call, so history grows by one
// tick per segment attempt.
func Workflow(ctx workflow.Context, courseID string) error {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return fmt.Errorf("course_segments: missing course_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		// segment retries are the scheduler's job; these cover infra blips only
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	})

	resumeCh := workflow.GetSignalChannel(ctx, SignalResume)
	ticks := 0
	for {
		ticks++
		var out PassOutcome
		if err := workflow.ExecuteActivity(ctx, ActivityPass, courseID).Get(ctx, &out); err != nil {
			return err
		}

		switch out.Status {
		case "all_completed":
			// published, or parked by the gate for manual attention
			return nil
		case "no_work":
			waitForResume(ctx, resumeCh, blockedPollInterval)
		default:
			if out.StartedSegment == nil {
				// someone else owns the running segment; poll until it settles
				if err := workflow.Sleep(ctx, processingPollInterval); err != nil {
					return err
				}
			}
		}
		if shouldContinueAsNew(ctx, ticks) {
			return workflow.NewContinueAsNewError(ctx, Workflow, courseID)
		}
	}
}

func waitForResume(ctx workflow.Context, ch workflow.ReceiveChannel, maxWait time.Duration) {
	timer := workflow.NewTimer(ctx, maxWait)
	sel := workflow.NewSelector(ctx)
	sel.AddReceive(ch, func(c workflow.ReceiveChannel, more bool) {
		var v any
		c.Receive(ctx, &v)
	})
	sel.AddFuture(timer, func(f workflow.Future) {})
	sel.Select(ctx)
}

func shouldContinueAsNew(ctx workflow.Context, ticks int) bool {
	if ticks >= continueTickLimit {
		return true
	}
	info := workflow.GetInfo(ctx)
	return info != nil && info.GetCurrentHistoryLength() >= continueHistoryLimit
}
