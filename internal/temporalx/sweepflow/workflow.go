package sweepflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one sweep pass per interval forever, continuing as new to keep
// history bounded. A failed pass is logged and the loop carries on.
func Workflow(ctx workflow.Context, p Params) error {
	p = p.withDefaults()
	log := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	for passes := 1; ; passes++ {
		var out PassResult
		if err := workflow.ExecuteActivity(ctx, ActivityPass).Get(ctx, &out); err != nil {
			log.Warn("cart sweep pass failed", "pass", passes, "error", err)
		} else {
			log.Info("cart sweep pass done", "pass", passes, "marked", out.Marked, "removed", out.Removed, "failed", out.Failed)
		}

		if err := workflow.Sleep(ctx, p.Interval); err != nil {
			return err
		}
		if shouldContinueAsNew(ctx, passes, p.PassesBeforeContinue, continueHistoryLimit) {
			return workflow.NewContinueAsNewError(ctx, Workflow, p)
		}
	}
}

func shouldContinueAsNew(ctx workflow.Context, passes int, maxPasses int, maxHistory int) bool {
	if maxPasses > 0 && passes >= maxPasses {
		return true
	}
	info := workflow.GetInfo(ctx)
	if info == nil || maxHistory <= 0 {
		return false
	}
	return info.GetCurrentHistoryLength() >= maxHistory
}
