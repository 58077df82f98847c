package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/cart-backend/internal/data/aggregates"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
)

// InjectedTxRunner is a test helper for aggregate integration tests.
// With Inner set it delegates to a real runner so the body hits the database;
// FailCommit is then raised inside the inner transaction, which rolls it back.
type InjectedTxRunner struct {
	mu sync.Mutex

	Inner aggregates.TxRunner

	FailBegin      error
	FailBeforeBody error
	FailCommit     error
	// FailCommitAttempts limits FailCommit to the first N transactions. Zero fails every one.
	FailCommitAttempts int

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

var errInjectedCommit = errors.New("injected commit failure")

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	if failCommit != nil && r.FailCommitAttempts > 0 && r.BeginCalls > r.FailCommitAttempts {
		failCommit = nil
	}
	inner := r.Inner
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if failBeforeBody != nil {
		r.count(&r.RollbackCalls)
		return failBeforeBody
	}
	if fn == nil {
		r.count(&r.CommitCalls)
		return nil
	}

	body := func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		if failCommit != nil {
			return errors.Join(errInjectedCommit, failCommit)
		}
		return nil
	}

	var err error
	if inner != nil {
		err = inner.InTx(ctx, body)
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}
	if err != nil {
		r.count(&r.RollbackCalls)
		if errors.Is(err, errInjectedCommit) {
			return failCommit
		}
		return err
	}
	r.count(&r.CommitCalls)
	return nil
}

func (r *InjectedTxRunner) count(n *int) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}
