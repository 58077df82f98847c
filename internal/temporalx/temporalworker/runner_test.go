package temporalworker

import (
	"context"
	"testing"
	"time"

	"go.temporal.io/sdk/mocks"

	"github.com/yungbote/cart-backend/internal/jobs/sweep"
	"github.com/yungbote/cart-backend/internal/temporalx"
	"github.com/yungbote/cart-backend/internal/temporalx/sweepflow"
)

type nopPasser struct{}

func (nopPasser) RunPass(context.Context, time.Time, string) (sweep.Summary, error) {
	return sweep.Summary{}, nil
}

func TestNewRunnerValidatesDeps(t *testing.T) {
	cfg := temporalx.Config{TaskQueue: "carts"}
	if _, err := NewRunner(nil, cfg, nil, nopPasser{}, sweepflow.Params{}); err == nil {
		t.Fatalf("expected error without client")
	}
	if _, err := NewRunner(nil, cfg, &mocks.Client{}, nil, sweepflow.Params{}); err == nil {
		t.Fatalf("expected error without passer")
	}
	if _, err := NewRunner(nil, cfg, &mocks.Client{}, nopPasser{}, sweepflow.Params{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStartRequiresRunner(t *testing.T) {
	var r *Runner
	if err := r.Start(context.Background()); err == nil {
		t.Fatalf("nil runner should fail to start")
	}
}
