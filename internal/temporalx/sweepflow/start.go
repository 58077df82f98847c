package sweepflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/cart-backend/internal/platform/logger"
)

type StartOptions struct {
	WorkflowID string
	TaskQueue  string
	Params     Params
}

// EnsureStarted starts the sweep workflow unless a run with the same id is
// already open. It reports whether this call started it.
func EnsureStarted(ctx context.Context, c temporalsdkclient.Client, log *logger.Logger, opts StartOptions) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("sweepflow: temporal client is not configured")
	}
	id := strings.TrimSpace(opts.WorkflowID)
	if id == "" {
		return false, fmt.Errorf("sweepflow: workflow id required")
	}
	queue := strings.TrimSpace(opts.TaskQueue)
	if queue == "" {
		return false, fmt.Errorf("sweepflow: task queue required")
	}

	run, err := c.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                                       id,
		TaskQueue:                                queue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, WorkflowName, opts.Params.withDefaults())
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			if log != nil {
				log.Debug("cart sweep workflow already running", "workflow_id", id)
			}
			return false, nil
		}
		return false, fmt.Errorf("sweepflow: start workflow: %w", err)
	}
	if log != nil {
		log.Info("cart sweep workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID(), "task_queue", queue)
	}
	return true, nil
}
