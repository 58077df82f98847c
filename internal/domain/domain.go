package domain

import (
	"github.com/yungbote/cart-backend/internal/domain/cart"
	"github.com/yungbote/cart-backend/internal/domain/sweep"
)

type Cart = cart.Cart
type LineItem = cart.LineItem
type Product = cart.Product

type SweepRun = sweep.SweepRun

// Models lists every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&cart.Product{},
		&cart.Cart{},
		&cart.LineItem{},
		&sweep.SweepRun{},
	}
}
