package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/cart-backend/internal/data/repos"
	types "github.com/yungbote/cart-backend/internal/domain"
	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
	"github.com/yungbote/cart-backend/internal/events"
	"github.com/yungbote/cart-backend/internal/observability"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

const (
	TriggerTicker   = "ticker"
	TriggerTemporal = "temporal"
	TriggerManual   = "manual"
	TriggerCLI      = "cli"

	StageRemove = "remove"
	StageMark   = "mark"

	DefaultBatchSize   = 200
	DefaultConcurrency = 4

	tracerName = "github.com/yungbote/cart-backend/internal/jobs/sweep"
)

type Config struct {
	AbandonAfter time.Duration
	RemoveAfter  time.Duration
	BatchSize    int
	Concurrency  int
}

func (c Config) withDefaults() Config {
	if c.AbandonAfter <= 0 {
		c.AbandonAfter = domainagg.DefaultAbandonAfter
	}
	if c.RemoveAfter <= 0 {
		c.RemoveAfter = domainagg.DefaultRemoveAfter
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

type Deps struct {
	Log       *logger.Logger
	Aggregate domainagg.CartAggregate
	Carts     repos.CartRepo
	Runs      repos.SweepRunRepo
	Publisher events.Publisher
	Metrics   *observability.Metrics
}

// Failure is one cart the pass could not process.
type Failure struct {
	CartID uuid.UUID `json:"cart_id"`
	Stage  string    `json:"stage"`
	Error  string    `json:"error"`
}

type Summary struct {
	RunID      uuid.UUID `json:"run_id"`
	Trigger    string    `json:"trigger"`
	Now        time.Time `json:"reference_time"`
	Scanned    int       `json:"scanned"`
	Marked     int       `json:"marked"`
	Removed    int       `json:"removed"`
	Untouched  int       `json:"untouched"`
	Failed     int       `json:"failed"`
	Failures   []Failure `json:"failures"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type Sweeper struct {
	log       *logger.Logger
	agg       domainagg.CartAggregate
	carts     repos.CartRepo
	runs      repos.SweepRunRepo
	publisher events.Publisher
	metrics   *observability.Metrics
	cfg       Config
}

func NewSweeper(deps Deps, cfg Config) *Sweeper {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	pub := deps.Publisher
	if pub == nil {
		pub = events.Noop()
	}
	return &Sweeper{
		log:       log.With("component", "CartSweeper"),
		agg:       deps.Aggregate,
		carts:     deps.Carts,
		runs:      deps.Runs,
		publisher: pub,
		metrics:   deps.Metrics,
		cfg:       cfg.withDefaults(),
	}
}

func (s *Sweeper) Config() Config { return s.cfg }

type outcome int

const (
	outcomeUntouched outcome = iota
	outcomeMarked
	outcomeRemoved
	outcomeFailed
)

// RunPass visits every cart idle since now-AbandonAfter once. Each cart is
// first offered to RemoveIfAbandoned and only marked when it was not removed.
// Per-cart failures are collected in the summary; the returned error is only
// set when the candidate scan or the run record fails.
func (s *Sweeper) RunPass(ctx context.Context, now time.Time, trigger string) (Summary, error) {
	now = now.UTC()
	if trigger == "" {
		trigger = TriggerManual
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CartSweep.RunPass")
	defer span.End()

	sum := Summary{
		Trigger:   trigger,
		Now:       now,
		StartedAt: time.Now().UTC(),
		Failures:  []Failure{},
	}
	var mu sync.Mutex
	record := func(c *types.Cart, o outcome, stage string, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch o {
		case outcomeMarked:
			sum.Marked++
		case outcomeRemoved:
			sum.Removed++
		case outcomeFailed:
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{CartID: c.ID, Stage: stage, Error: err.Error()})
		default:
			sum.Untouched++
		}
	}

	scanErr := s.eachCandidate(ctx, now, func(page []*types.Cart) {
		mu.Lock()
		sum.Scanned += len(page)
		mu.Unlock()

		var g errgroup.Group
		g.SetLimit(s.cfg.Concurrency)
		for _, c := range page {
			g.Go(func() error {
				o, stage, err := s.processCart(ctx, c, now)
				if err != nil {
					s.log.Warn("sweep cart failed", "cart_id", c.ID, "stage", stage, "error", err)
				}
				record(c, o, stage, err)
				return nil
			})
		}
		_ = g.Wait()
	})
	sum.FinishedAt = time.Now().UTC()

	span.SetAttributes(
		attribute.String("sweep.trigger", trigger),
		attribute.Int("sweep.scanned", sum.Scanned),
		attribute.Int("sweep.marked", sum.Marked),
		attribute.Int("sweep.removed", sum.Removed),
		attribute.Int("sweep.failed", sum.Failed),
	)

	status := "success"
	if scanErr != nil {
		status = "error"
	} else if sum.Failed > 0 {
		status = "partial"
	}
	s.metrics.ObserveSweepPass(trigger, status, observability.SweepCounts{
		Marked:    sum.Marked,
		Removed:   sum.Removed,
		Untouched: sum.Untouched,
		Failed:    sum.Failed,
	}, sum.FinishedAt.Sub(sum.StartedAt))

	runErr := s.persistRun(ctx, &sum)
	if runErr != nil {
		s.log.Error("sweep run record failed", "trigger", trigger, "error", runErr)
	}

	s.log.Info("sweep pass finished",
		"trigger", trigger,
		"scanned", sum.Scanned,
		"marked", sum.Marked,
		"removed", sum.Removed,
		"untouched", sum.Untouched,
		"failed", sum.Failed,
		"duration", sum.FinishedAt.Sub(sum.StartedAt),
	)

	err := errors.Join(scanErr, runErr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, status)
	}
	return sum, err
}

// Candidates lists every cart a pass at now would visit, without touching them.
func (s *Sweeper) Candidates(ctx context.Context, now time.Time) ([]*types.Cart, error) {
	var out []*types.Cart
	err := s.eachCandidate(ctx, now.UTC(), func(page []*types.Cart) {
		out = append(out, page...)
	})
	return out, err
}

func (s *Sweeper) eachCandidate(ctx context.Context, now time.Time, fn func(page []*types.Cart)) error {
	cutoff := now.Add(-s.cfg.AbandonAfter)
	afterID := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.carts.ListIdleBefore(dbctx.Context{Ctx: ctx}, cutoff, afterID, s.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("list idle carts: %w", err)
		}
		if len(page) == 0 {
			return nil
		}
		fn(page)
		afterID = page[len(page)-1].ID
		if len(page) < s.cfg.BatchSize {
			return nil
		}
	}
}

func (s *Sweeper) processCart(ctx context.Context, c *types.Cart, now time.Time) (outcome, string, error) {
	if err := ctx.Err(); err != nil {
		return outcomeFailed, StageRemove, err
	}
	removed, err := s.agg.RemoveIfAbandoned(ctx, domainagg.LifecycleInput{
		CartID:    c.ID,
		Now:       now,
		Threshold: s.cfg.RemoveAfter,
	})
	if errors.Is(err, domainagg.ErrCartNotFound) {
		return outcomeUntouched, StageRemove, nil
	}
	if err != nil {
		return outcomeFailed, StageRemove, err
	}
	if removed {
		s.publish(ctx, events.Event{Type: events.Removed, CartID: c.ID, OccurredAt: now})
		return outcomeRemoved, StageRemove, nil
	}

	marked, err := s.agg.MarkAbandonedIfIdle(ctx, domainagg.LifecycleInput{
		CartID:    c.ID,
		Now:       now,
		Threshold: s.cfg.AbandonAfter,
	})
	if errors.Is(err, domainagg.ErrCartNotFound) {
		return outcomeUntouched, StageMark, nil
	}
	if err != nil {
		return outcomeFailed, StageMark, err
	}
	// A cart already flagged before this pass is not counted again.
	if !marked || c.Abandoned {
		return outcomeUntouched, StageMark, nil
	}
	s.publish(ctx, events.Event{
		Type:       events.Abandoned,
		CartID:     c.ID,
		TotalPrice: c.TotalPrice.StringFixed(2),
		OccurredAt: now,
	})
	return outcomeMarked, StageMark, nil
}

func (s *Sweeper) persistRun(ctx context.Context, sum *Summary) error {
	if s.runs == nil {
		return nil
	}
	raw, err := json.Marshal(sum.Failures)
	if err != nil {
		return err
	}
	run := &types.SweepRun{
		Trigger:       sum.Trigger,
		ReferenceTime: sum.Now,
		StartedAt:     sum.StartedAt,
		FinishedAt:    sum.FinishedAt,
		Scanned:       sum.Scanned,
		Marked:        sum.Marked,
		Removed:       sum.Removed,
		Untouched:     sum.Untouched,
		Failed:        sum.Failed,
		Failures:      datatypes.JSON(raw),
	}
	// The pass context may already be cancelled; the record still gets written.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.runs.Create(dbctx.Context{Ctx: writeCtx}, run); err != nil {
		return err
	}
	sum.RunID = run.ID
	return nil
}

func (s *Sweeper) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("cart event publish failed", "type", evt.Type, "cart_id", evt.CartID, "error", err)
	}
}
