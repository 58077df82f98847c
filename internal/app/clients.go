package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/cart-backend/internal/clients/redis"
	"github.com/yungbote/cart-backend/internal/platform/logger"
	"github.com/yungbote/cart-backend/internal/temporalx"
)

type Clients struct {
	Redis       *goredis.Client
	Temporal    temporalsdkclient.Client
	TemporalCfg temporalx.Config
}

// wireClients connects the optional backends. Redis is skipped without an
// address; Temporal is only dialled when it schedules the sweep.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := redis.NewClient(ctx, log, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
	}

	if cfg.Sweep.Scheduler == SchedulerTemporal {
		out.TemporalCfg = temporalx.LoadConfig()
		tc, err := temporalx.NewClient(log, out.TemporalCfg)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init temporal: %w", err)
		}
		if tc == nil {
			out.Close()
			return Clients{}, fmt.Errorf("SWEEP_SCHEDULER=temporal requires TEMPORAL_ADDRESS")
		}
		out.Temporal = tc
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
