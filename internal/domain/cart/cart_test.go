package cart

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestLineItemMergeRecomputesTotal(t *testing.T) {
	li := NewLineItem(uuid.New(), uuid.New(), 2, decimal.RequireFromString("10.00"))
	if !li.TotalPrice.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("initial total: want=20 got=%s", li.TotalPrice)
	}
	li.AddQuantity(3)
	if li.Quantity != 5 {
		t.Fatalf("merged quantity: want=5 got=%d", li.Quantity)
	}
	if !li.TotalPrice.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("merged total: want=50 got=%s", li.TotalPrice)
	}
}

func TestSumLineTotalsIgnoresStoredTotals(t *testing.T) {
	a := NewLineItem(uuid.New(), uuid.New(), 2, decimal.RequireFromString("1.25"))
	b := NewLineItem(uuid.New(), uuid.New(), 1, decimal.RequireFromString("19.99"))
	b.TotalPrice = decimal.RequireFromString("999")

	got := SumLineTotals([]*LineItem{a, nil, b})
	if !got.Equal(decimal.RequireFromString("22.49")) {
		t.Fatalf("sum: want=22.49 got=%s", got)
	}
	if !SumLineTotals(nil).IsZero() {
		t.Fatalf("empty sum should be zero")
	}
}

func TestCartIdleFor(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &Cart{LastInteractionAt: now.Add(-179 * time.Minute)}
	if got := c.IdleFor(now); got != 179*time.Minute {
		t.Fatalf("idle: want=%s got=%s", 179*time.Minute, got)
	}
}
