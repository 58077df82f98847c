package app

import (
	"context"
	"fmt"

	"github.com/yungbote/cart-backend/internal/jobs/sweep"
	"github.com/yungbote/cart-backend/internal/observability"
	"github.com/yungbote/cart-backend/internal/platform/logger"
	"github.com/yungbote/cart-backend/internal/temporalx/sweepflow"
	"github.com/yungbote/cart-backend/internal/temporalx/temporalworker"
)

// startScheduler launches whichever driver owns the periodic sweep.
func startScheduler(ctx context.Context, log *logger.Logger, cfg Config, clients Clients, sweeper *sweep.Sweeper, metrics *observability.Metrics) error {
	switch cfg.Sweep.Scheduler {
	case SchedulerOff:
		log.Info("sweep scheduler disabled")
		return nil
	case SchedulerTemporal:
		runner, err := temporalworker.NewRunner(log, clients.TemporalCfg, clients.Temporal, sweeper, sweepflow.Params{
			Interval:             cfg.Sweep.Interval,
			PassesBeforeContinue: cfg.Sweep.PassesBeforeContinue,
		})
		if err != nil {
			return fmt.Errorf("init temporal sweep worker: %w", err)
		}
		return runner.Start(ctx)
	default:
		opts := []sweep.TickerOption{sweep.WithMetrics(metrics)}
		if clients.Redis != nil {
			opts = append(opts, sweep.WithLease(sweep.NewLease(clients.Redis, sweep.DefaultLeaseKey, cfg.Sweep.LeaseTTL)))
		}
		sweep.NewTicker(log, sweeper, cfg.Sweep.Interval, opts...).Start(ctx)
		log.Info("sweep ticker started", "interval", cfg.Sweep.Interval, "lease", clients.Redis != nil)
		return nil
	}
}
