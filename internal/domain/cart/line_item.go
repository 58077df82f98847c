package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineItem is one product quantity inside a cart; (cart_id, product_id) is unique.
type LineItem struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_line_item_cart_product,priority:1" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_line_item_cart_product,priority:2;index" json:"product_id"`

	Quantity   int             `gorm:"not null;check:chk_line_item_quantity,quantity > 0" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LineItem) TableName() string { return "line_item" }

func (li *LineItem) BeforeCreate(tx *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}

func NewLineItem(cartID, productID uuid.UUID, quantity int, unitPrice decimal.Decimal) *LineItem {
	li := &LineItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	li.Recompute()
	return li
}

// AddQuantity merges a repeat add of the same product into this line.
func (li *LineItem) AddQuantity(n int) {
	li.Quantity += n
	li.Recompute()
}

// Recompute derives TotalPrice from UnitPrice and Quantity.
func (li *LineItem) Recompute() {
	li.TotalPrice = li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
