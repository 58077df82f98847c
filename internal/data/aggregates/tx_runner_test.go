package aggregates_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/cart-backend/internal/data/aggregates"
	"github.com/yungbote/cart-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cart-backend/internal/domain"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
)

func TestGormTxRunnerCommitsAndRollsBack(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	runner := aggregates.NewGormTxRunner(db)

	if err := runner.InTx(ctx, func(dbc dbctx.Context) error {
		testutil.SeedProduct(t, dbc.Ctx, dbc.Tx, "Kept", "1.00")
		return nil
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("boom")
	err := runner.InTx(ctx, func(dbc dbctx.Context) error {
		testutil.SeedProduct(t, dbc.Ctx, dbc.Tx, "Dropped", "2.00")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("rollback error: want=%v got=%v", boom, err)
	}

	var names []string
	if err := db.Model(&types.Product{}).Pluck("name", &names).Error; err != nil {
		t.Fatalf("pluck: %v", err)
	}
	if len(names) != 1 || names[0] != "Kept" {
		t.Fatalf("persisted products: %v", names)
	}
}

func TestGormTxRunnerRejectsCanceledContext(t *testing.T) {
	runner := aggregates.NewGormTxRunner(testutil.SQLite(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := runner.InTx(ctx, func(dbctx.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("want context.Canceled without running body, got err=%v called=%v", err, called)
	}
}

func TestGormTxRunnerWithoutDB(t *testing.T) {
	err := aggregates.NewGormTxRunner(nil).InTx(context.Background(), func(dbctx.Context) error { return nil })
	if err == nil {
		t.Fatalf("expected error for nil db")
	}
}
