package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/cart-backend/internal/observability"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

const DefaultChannel = "cart-events"

type redisPublisher struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
	metrics *observability.Metrics
}

// NewRedisPublisher publishes JSON events on a Redis pub/sub channel.
// The client is shared; Close does not close it.
func NewRedisPublisher(log *logger.Logger, rdb goredis.UniversalClient, channel string, metrics *observability.Metrics) (Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &redisPublisher{
		log:     log.With("service", "RedisCartEvents"),
		rdb:     rdb,
		channel: channel,
		metrics: metrics,
	}, nil
}

func (p *redisPublisher) Publish(ctx context.Context, evt Event) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis event publisher not initialized")
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		p.metrics.IncCartEvent(string(evt.Type), "error")
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
		p.metrics.IncCartEvent(string(evt.Type), "error")
		return err
	}
	p.metrics.IncCartEvent(string(evt.Type), "published")
	return nil
}

func (p *redisPublisher) Close() error { return nil }

// Subscribe forwards decoded events from channel to onEvent until ctx is done.
func Subscribe(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient, channel string, onEvent func(Event)) error {
	if rdb == nil {
		return fmt.Errorf("redis client required")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	if log == nil {
		log = logger.Nop()
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}

	sub := rdb.Subscribe(ctx, channel)
	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					log.Warn("bad cart event payload", "error", err)
					continue
				}
				onEvent(evt)
			}
		}
	}()
	return nil
}
