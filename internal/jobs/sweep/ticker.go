package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/cart-backend/internal/observability"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

const DefaultInterval = 5 * time.Minute

// Passer runs one sweep pass. *Sweeper satisfies it.
type Passer interface {
	RunPass(ctx context.Context, now time.Time, trigger string) (Summary, error)
}

type Ticker struct {
	log      *logger.Logger
	passer   Passer
	interval time.Duration
	lease    *Lease
	metrics  *observability.Metrics
	now      func() time.Time
}

type TickerOption func(*Ticker)

// WithLease makes each tick skip unless the lease is acquired.
func WithLease(l *Lease) TickerOption { return func(t *Ticker) { t.lease = l } }

func WithMetrics(m *observability.Metrics) TickerOption {
	return func(t *Ticker) { t.metrics = m }
}

func WithClock(now func() time.Time) TickerOption { return func(t *Ticker) { t.now = now } }

func NewTicker(log *logger.Logger, passer Passer, interval time.Duration, opts ...TickerOption) *Ticker {
	if log == nil {
		log = logger.Nop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := &Ticker{
		log:      log.With("component", "CartSweepTicker"),
		passer:   passer,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start runs a pass every interval until ctx is done.
func (t *Ticker) Start(ctx context.Context) {
	go t.Run(ctx)
}

func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	t.log.Info("sweep ticker started", "interval", t.interval, "lease", t.lease != nil)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick runs at most one pass. A panicking pass is logged and the loop keeps going.
func (t *Ticker) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("sweep pass panic", "panic", fmt.Sprint(r))
		}
	}()

	if t.lease != nil {
		ok, err := t.lease.Acquire(ctx)
		if err != nil {
			t.metrics.IncSweepLease("error")
			t.log.Warn("sweep lease acquire failed", "error", err)
			return
		}
		if !ok {
			t.metrics.IncSweepLease("held")
			t.log.Debug("sweep lease held elsewhere, skipping pass")
			return
		}
		t.metrics.IncSweepLease("acquired")
		defer func() {
			if err := t.lease.Release(context.WithoutCancel(ctx)); err != nil {
				t.log.Warn("sweep lease release failed", "error", err)
			}
		}()
	}

	if _, err := t.passer.RunPass(ctx, t.now(), TriggerTicker); err != nil {
		t.log.Warn("sweep pass returned error", "error", err)
	}
}
