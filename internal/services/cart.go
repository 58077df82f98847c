package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cart-backend/internal/catalog"
	"github.com/yungbote/cart-backend/internal/data/repos"
	types "github.com/yungbote/cart-backend/internal/domain"
	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
	"github.com/yungbote/cart-backend/internal/events"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

const (
	opServiceAddItem = "CartService.AddItem"
	opServiceFind    = "CartService.FindOrCreate"
)

type CartService interface {
	CreateCart(ctx context.Context) (uuid.UUID, error)
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*types.LineItem, error)
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (domainagg.CartSnapshot, error)
	// FindOrCreate returns the cart for cartID, creating a new one when the id
	// is nil or has no backing row.
	FindOrCreate(ctx context.Context, cartID *uuid.UUID) (*types.Cart, bool, error)
}

type cartService struct {
	log       *logger.Logger
	agg       domainagg.CartAggregate
	carts     repos.CartRepo
	catalog   catalog.Lookup
	publisher events.Publisher
	now       func() time.Time
}

type CartServiceDeps struct {
	Log       *logger.Logger
	Aggregate domainagg.CartAggregate
	Carts     repos.CartRepo
	Catalog   catalog.Lookup
	Publisher events.Publisher
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func NewCartService(deps CartServiceDeps) CartService {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	pub := deps.Publisher
	if pub == nil {
		pub = events.Noop()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &cartService{
		log:       log.With("service", "CartService"),
		agg:       deps.Aggregate,
		carts:     deps.Carts,
		catalog:   deps.Catalog,
		publisher: pub,
		now:       now,
	}
}

func (s *cartService) CreateCart(ctx context.Context) (uuid.UUID, error) {
	c, err := s.agg.CreateCart(ctx, s.now())
	if err != nil {
		return uuid.Nil, err
	}
	s.log.Debug("cart created", "cart_id", c.ID)
	return c.ID, nil
}

func (s *cartService) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*types.LineItem, error) {
	if quantity <= 0 {
		return nil, domainagg.NewError(domainagg.CodeInvalidQuantity, opServiceAddItem, "quantity must be > 0", nil)
	}
	product, err := s.catalog.ResolveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res, err := s.agg.AddItem(ctx, domainagg.AddItemInput{
		CartID:    cartID,
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: product.Price,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	if res.Resumed {
		s.log.Info("abandoned cart resumed", "cart_id", cartID)
	}

	pid := product.ID
	qty := res.Item.Quantity
	s.publish(ctx, events.Event{
		Type:       events.ItemAdded,
		CartID:     cartID,
		ProductID:  &pid,
		Quantity:   &qty,
		TotalPrice: res.CartTotal.StringFixed(2),
		OccurredAt: now,
	})
	item := res.Item
	return &item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	now := s.now()
	res, err := s.agg.RemoveItem(ctx, domainagg.RemoveItemInput{
		CartID:    cartID,
		ProductID: productID,
		Now:       now,
	})
	if err != nil {
		return false, err
	}
	if !res.Removed {
		return false, nil
	}
	pid := productID
	s.publish(ctx, events.Event{
		Type:       events.ItemRemoved,
		CartID:     cartID,
		ProductID:  &pid,
		TotalPrice: res.CartTotal.StringFixed(2),
		OccurredAt: now,
	})
	return true, nil
}

func (s *cartService) GetCart(ctx context.Context, cartID uuid.UUID) (domainagg.CartSnapshot, error) {
	return s.agg.GetCart(ctx, cartID)
}

func (s *cartService) FindOrCreate(ctx context.Context, cartID *uuid.UUID) (*types.Cart, bool, error) {
	if cartID != nil && *cartID != uuid.Nil {
		c, err := s.carts.GetByID(dbctx.Context{Ctx: ctx}, *cartID)
		if err != nil {
			return nil, false, domainagg.NewError(domainagg.CodePersistenceFailure, opServiceFind, "cart lookup failed", err)
		}
		if c != nil {
			return c, false, nil
		}
		s.log.Debug("unknown cart id, creating a new cart", "cart_id", *cartID)
	}
	c, err := s.agg.CreateCart(ctx, s.now())
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// publish never fails the caller: the write it describes has already committed.
func (s *cartService) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("cart event publish failed", "type", evt.Type, "cart_id", evt.CartID, "error", err)
	}
}
