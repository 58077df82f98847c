package aggregates

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

const tracerName = "github.com/yungbote/cart-backend/internal/data/aggregates"

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard

	// Attempts bounds how many times a conflicting or retryable write is tried.
	Attempts int
	// Backoff is the sleep before the second attempt; it doubles after that.
	Backoff time.Duration
	// Timeout bounds each attempt. Zero leaves the caller context as is.
	Timeout time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Attempts < 1 {
		d.Attempts = 1
	}
	if d.Backoff <= 0 {
		d.Backoff = 10 * time.Millisecond
	}
	return d
}

// executeWrite runs fn in a transaction, retrying conflict/retryable failures up
// to deps.Attempts. fn must be safe to re-run: it is invoked once per attempt
// and each attempt starts from freshly read state.
//
// Caller errors (cart missing, bad quantity, validation) are returned as is.
// Anything else that survives the retries surfaces as persistence_failure with
// the classified error as its cause.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()

	var mapped error
	attempt := 0
	for attempt = 1; attempt <= deps.Attempts; attempt++ {
		mapped = MapError(op, runAttempt(ctx, deps, fn))
		if mapped == nil {
			break
		}
		conflict := domainagg.IsCode(mapped, domainagg.CodeConflict)
		retryable := domainagg.IsCode(mapped, domainagg.CodeRetryable)
		if conflict {
			deps.Hooks.IncConflict(op)
		}
		if retryable {
			deps.Hooks.IncRetry(op)
		}
		if !(conflict || retryable) || attempt == deps.Attempts || ctx.Err() != nil {
			break
		}
		deps.Log.Debug("aggregate write retrying", "op", op, "attempt", attempt, "error", mapped)
		if !sleepCtx(ctx, backoffFor(deps.Backoff, attempt)) {
			break
		}
	}
	if attempt > deps.Attempts {
		attempt = deps.Attempts
	}
	span.SetAttributes(attribute.Int("aggregate.attempts", attempt))

	status := aggregateErrorStatus(mapped)
	deps.Hooks.ObserveWrite(WriteEvent{Op: op, Status: status, Attempts: attempt, Duration: time.Since(start)})

	if mapped == nil {
		return nil
	}
	span.RecordError(mapped)
	span.SetStatus(otelcodes.Error, status)
	if domainagg.IsCallerError(mapped) {
		return mapped
	}
	return persistenceFailure(op, mapped)
}

func runAttempt(ctx context.Context, deps BaseDeps, fn func(dbc dbctx.Context) error) error {
	if deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.Timeout)
		defer cancel()
	}
	return deps.Runner.InTx(ctx, fn)
}

func persistenceFailure(op string, cause error) error {
	msg := "write did not commit"
	var aggErr *domainagg.Error
	if errors.As(cause, &aggErr) && aggErr.Message != "" {
		msg = aggErr.Message
	}
	return domainagg.NewError(domainagg.CodePersistenceFailure, op, msg, cause)
}

func backoffFor(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= time.Second {
			return time.Second
		}
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
