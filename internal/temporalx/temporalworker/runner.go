package temporalworker

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/cart-backend/internal/jobs/sweep"
	"github.com/yungbote/cart-backend/internal/platform/envutil"
	"github.com/yungbote/cart-backend/internal/platform/logger"
	"github.com/yungbote/cart-backend/internal/temporalx"
	"github.com/yungbote/cart-backend/internal/temporalx/sweepflow"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type Runner struct {
	log *logger.Logger
	cfg temporalx.Config

	tc     temporalsdkclient.Client
	passer sweep.Passer
	params sweepflow.Params
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, passer sweep.Passer, params sweepflow.Params) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if passer == nil {
		return nil, fmt.Errorf("temporal worker missing sweep passer")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{log: log.With("component", "TemporalSweepWorker"), cfg: cfg, tc: tc, passer: passer, params: params}, nil
}

// Start polls the task queue and makes sure the sweep workflow is running.
// The worker stops when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	var w worker.Worker
	err := temporalx.Retry(ctx, cfg, func(ctx context.Context, attempt int) (bool, error) {
		w = r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			return false, nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) {
			if !cfg.AutoRegisterNamespace {
				return false, fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			if err := temporalx.EnsureNamespace(ctx, r.log, cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", cfg.Namespace, "error", err)
			}
		}
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		return true, startErr
	})
	if err != nil {
		return err
	}

	if _, err := sweepflow.EnsureStarted(ctx, r.tc, r.log, sweepflow.StartOptions{
		WorkflowID: cfg.SweepWorkflowID,
		TaskQueue:  cfg.TaskQueue,
		Params:     r.params,
	}); err != nil {
		w.Stop()
		return err
	}

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 2)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	register(w, &sweepflow.Activities{Sweeper: r.passer})
	return w
}

func register(w worker.Registry, acts *sweepflow.Activities) {
	w.RegisterWorkflowWithOptions(sweepflow.Workflow, workflow.RegisterOptions{Name: sweepflow.WorkflowName})
	w.RegisterActivityWithOptions(acts.Pass, activity.RegisterOptions{Name: sweepflow.ActivityPass})
}
