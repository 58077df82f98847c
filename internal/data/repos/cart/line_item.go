package cart

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cart-backend/internal/domain"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

type LineItemRepo interface {
	Create(dbc dbctx.Context, li *types.LineItem) error
	Save(dbc dbctx.Context, li *types.LineItem) error
	GetByCartAndProduct(dbc dbctx.Context, cartID, productID uuid.UUID) (*types.LineItem, error)
	ListByCart(dbc dbctx.Context, cartID uuid.UUID) ([]*types.LineItem, error)
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
	DeleteByCart(dbc dbctx.Context, cartID uuid.UUID) (int64, error)
}

type lineItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLineItemRepo(db *gorm.DB, baseLog *logger.Logger) LineItemRepo {
	return &lineItemRepo{
		db:  db,
		log: baseLog.With("repo", "LineItemRepo"),
	}
}

func (r *lineItemRepo) Create(dbc dbctx.Context, li *types.LineItem) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Create(li).Error
}

// Save writes quantity and prices back for an existing line.
func (r *lineItemRepo) Save(dbc dbctx.Context, li *types.LineItem) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.LineItem{}).
		Where("id = ?", li.ID).
		Updates(map[string]interface{}{
			"quantity":    li.Quantity,
			"unit_price":  li.UnitPrice,
			"total_price": li.TotalPrice,
			"updated_at":  li.UpdatedAt,
		}).Error
}

func (r *lineItemRepo) GetByCartAndProduct(dbc dbctx.Context, cartID, productID uuid.UUID) (*types.LineItem, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if cartID == uuid.Nil || productID == uuid.Nil {
		return nil, nil
	}
	var li types.LineItem
	if err := t.WithContext(dbc.Ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Limit(1).
		Find(&li).Error; err != nil {
		return nil, err
	}
	if li.ID == uuid.Nil {
		return nil, nil
	}
	return &li, nil
}

func (r *lineItemRepo) ListByCart(dbc dbctx.Context, cartID uuid.UUID) ([]*types.LineItem, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.LineItem
	if cartID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lineItemRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.LineItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *lineItemRepo) DeleteByCart(dbc dbctx.Context, cartID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if cartID == uuid.Nil {
		return 0, nil
	}
	res := t.WithContext(dbc.Ctx).Where("cart_id = ?", cartID).Delete(&types.LineItem{})
	return res.RowsAffected, res.Error
}
