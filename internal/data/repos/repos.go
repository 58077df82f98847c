package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/cart-backend/internal/data/repos/cart"
	"github.com/yungbote/cart-backend/internal/data/repos/sweep"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

type CartRepo = cart.CartRepo
type LineItemRepo = cart.LineItemRepo
type ProductRepo = cart.ProductRepo

type SweepRunRepo = sweep.SweepRunRepo

func NewCartRepo(db *gorm.DB, baseLog *logger.Logger) CartRepo { return cart.NewCartRepo(db, baseLog) }
func NewLineItemRepo(db *gorm.DB, baseLog *logger.Logger) LineItemRepo {
	return cart.NewLineItemRepo(db, baseLog)
}
func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return cart.NewProductRepo(db, baseLog)
}
func NewSweepRunRepo(db *gorm.DB, baseLog *logger.Logger) SweepRunRepo {
	return sweep.NewSweepRunRepo(db, baseLog)
}
