package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/cart-backend/internal/domain"
)

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, price string) *types.Product {
	tb.Helper()
	p := &types.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedCart(tb testing.TB, ctx context.Context, tx *gorm.DB, lastInteractionAt time.Time, abandoned bool) *types.Cart {
	tb.Helper()
	c := &types.Cart{
		ID:                uuid.New(),
		LastInteractionAt: lastInteractionAt.UTC(),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed cart: %v", err)
	}
	if abandoned {
		if err := tx.WithContext(ctx).Model(&types.Cart{}).Where("id = ?", c.ID).Update("abandoned", true).Error; err != nil {
			tb.Fatalf("seed cart abandoned: %v", err)
		}
		c.Abandoned = true
	}
	return c
}

// SeedLine inserts a line and keeps the cart total consistent with it.
func SeedLine(tb testing.TB, ctx context.Context, tx *gorm.DB, c *types.Cart, p *types.Product, quantity int) *types.LineItem {
	tb.Helper()
	li := &types.LineItem{
		ID:        uuid.New(),
		CartID:    c.ID,
		ProductID: p.ID,
		Quantity:  quantity,
		UnitPrice: p.Price,
	}
	li.Recompute()
	if err := tx.WithContext(ctx).Create(li).Error; err != nil {
		tb.Fatalf("seed line item: %v", err)
	}
	c.TotalPrice = c.TotalPrice.Add(li.TotalPrice)
	if err := tx.WithContext(ctx).Model(&types.Cart{}).Where("id = ?", c.ID).Update("total_price", c.TotalPrice).Error; err != nil {
		tb.Fatalf("seed cart total: %v", err)
	}
	return li
}
