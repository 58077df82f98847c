package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	types "github.com/yungbote/cart-backend/internal/domain"
)

const (
	OpCartCreate        = "Cart.CreateCart"
	OpCartAddItem       = "Cart.AddItem"
	OpCartRemoveItem    = "Cart.RemoveItem"
	OpCartMarkAbandoned = "Cart.MarkAbandonedIfIdle"
	OpCartRemove        = "Cart.RemoveIfAbandoned"
	OpCartGet           = "Cart.GetCart"
)

var CartAggregateContract = Contract{
	Name:             "Commerce.CartAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	WriteOps: []string{
		OpCartCreate,
		OpCartAddItem,
		OpCartRemoveItem,
		OpCartMarkAbandoned,
		OpCartRemove,
	},
	Notes:            "Owns atomic line item upsert/delete, total recomputation, interaction timestamp and abandoned/removed lifecycle.",
}

const (
	DefaultAbandonAfter = 3 * time.Hour
	DefaultRemoveAfter  = 7 * 24 * time.Hour
)

// PricePolicy decides when a line's unit price is taken from the catalog.
type PricePolicy string

const (
	// PriceCaptured keeps the price seen when the line was first created.
	PriceCaptured PricePolicy = "captured"
	// PriceRefresh re-captures the current catalog price on every add of that product.
	PriceRefresh PricePolicy = "refresh"
)

func ParsePricePolicy(raw string) PricePolicy {
	if PricePolicy(raw) == PriceRefresh {
		return PriceRefresh
	}
	return PriceCaptured
}

// CartAggregate owns cart consistency.
//
// Write failures are *aggregates.Error with one of
// CodeCartNotFound, CodeInvalidQuantity, CodeValidation or CodePersistenceFailure.
type CartAggregate interface {
	Aggregate

	// CreateCart inserts an empty cart whose idle clock starts at now.
	CreateCart(ctx context.Context, now time.Time) (*types.Cart, error)

	// AddItem merges quantity into the product's line (creating it if absent),
	// recomputes the cart total and touches last_interaction_at in one commit.
	AddItem(ctx context.Context, in AddItemInput) (AddItemResult, error)

	// RemoveItem deletes the product's line if present and recomputes the total.
	RemoveItem(ctx context.Context, in RemoveItemInput) (RemoveItemResult, error)

	// MarkAbandonedIfIdle flags the cart when idle >= threshold, judged on the
	// persisted last_interaction_at read under lock.
	MarkAbandonedIfIdle(ctx context.Context, in LifecycleInput) (bool, error)

	// RemoveIfAbandoned deletes the cart and its lines when idle >= threshold.
	RemoveIfAbandoned(ctx context.Context, in LifecycleInput) (bool, error)

	// GetCart returns a snapshot read in one transaction with the cart row
	// share-locked, so its total always matches its lines.
	GetCart(ctx context.Context, cartID uuid.UUID) (CartSnapshot, error)
}

type AddItemInput struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	// UnitPrice resolved from the catalog before the write.
	UnitPrice decimal.Decimal
	Now       time.Time
}

type AddItemResult struct {
	Item       types.LineItem
	CartTotal  decimal.Decimal
	Created    bool
	// Resumed is set when the write cleared a previous abandoned flag.
	Resumed    bool
}

type RemoveItemInput struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
	Now       time.Time
}

type RemoveItemResult struct {
	Removed   bool
	Prior     *types.LineItem
	CartTotal decimal.Decimal
}

type LifecycleInput struct {
	CartID    uuid.UUID
	Now       time.Time
	Threshold time.Duration
}

// SnapshotLine is one ordered entry of a cart snapshot.
type SnapshotLine struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type CartSnapshot struct {
	ID                uuid.UUID       `json:"id"`
	Lines             []SnapshotLine  `json:"products"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Abandoned         bool            `json:"abandoned"`
	LastInteractionAt time.Time       `json:"last_interaction_at"`
}
