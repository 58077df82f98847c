package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is the aggregate root. TotalPrice is derived from LineItems and is only
// written by the cart aggregate after recomputing it inside the same transaction.
type Cart struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	TotalPrice decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0;check:chk_cart_total_price,total_price >= 0" json:"total_price"`
	Abandoned  bool            `gorm:"not null;default:false;index" json:"abandoned"`

	LastInteractionAt time.Time `gorm:"not null;index" json:"last_interaction_at"`

	// Bumped on every committed mutation; guarded by compare-and-set.
	Version int `gorm:"not null;default:0" json:"version"`

	LineItems []LineItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Cart) TableName() string { return "cart" }

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IdleFor reports how long the cart has gone without an interaction as of now.
func (c *Cart) IdleFor(now time.Time) time.Duration {
	if c == nil {
		return 0
	}
	return now.Sub(c.LastInteractionAt)
}

// SumLineTotals recomputes the cart total from scratch over the given lines.
func SumLineTotals(lines []*LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range lines {
		if li == nil {
			continue
		}
		total = total.Add(li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	return total
}
