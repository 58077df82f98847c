package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/cart-backend/internal/data/repos"
	types "github.com/yungbote/cart-backend/internal/domain"
	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
	domaincart "github.com/yungbote/cart-backend/internal/domain/cart"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
)

const (
	opCartCreate        = domainagg.OpCartCreate
	opCartAddItem       = domainagg.OpCartAddItem
	opCartRemoveItem    = domainagg.OpCartRemoveItem
	opCartMarkAbandoned = domainagg.OpCartMarkAbandoned
	opCartRemove        = domainagg.OpCartRemove
	opCartGet           = domainagg.OpCartGet

	cartTable = "cart"
)

type CartAggregateDeps struct {
	Base  BaseDeps
	Carts repos.CartRepo
	Lines repos.LineItemRepo

	PricePolicy domainagg.PricePolicy
	// KeepAbandonedOnResume leaves the abandoned flag set across add/remove.
	// The default clears it.
	KeepAbandonedOnResume bool
}

type cartAggregate struct {
	deps CartAggregateDeps
}

func NewCartAggregate(deps CartAggregateDeps) domainagg.CartAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.PricePolicy == "" {
		deps.PricePolicy = domainagg.PriceCaptured
	}
	return &cartAggregate{deps: deps}
}

func (a *cartAggregate) Contract() domainagg.Contract {
	return domainagg.CartAggregateContract
}

func (a *cartAggregate) CreateCart(ctx context.Context, now time.Time) (*types.Cart, error) {
	if err := a.validateDeps(); err != nil {
		return nil, err
	}
	now = now.UTC()
	var out *types.Cart
	err := executeWrite(ctx, a.deps.Base, opCartCreate, func(dbc dbctx.Context) error {
		c := &types.Cart{
			ID:                uuid.New(),
			TotalPrice:        decimal.Zero,
			LastInteractionAt: now,
		}
		if err := a.deps.Carts.Create(dbc, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *cartAggregate) AddItem(ctx context.Context, in AddItemInput) (AddItemResult, error) {
	if err := a.validateDeps(); err != nil {
		return AddItemResult{}, err
	}
	if in.CartID == uuid.Nil || in.ProductID == uuid.Nil {
		return AddItemResult{}, domainagg.NewError(domainagg.CodeValidation, opCartAddItem, "cart_id and product_id are required", nil)
	}
	if in.Quantity <= 0 {
		return AddItemResult{}, domainagg.NewError(domainagg.CodeInvalidQuantity, opCartAddItem, "quantity must be > 0", nil)
	}
	if in.UnitPrice.IsNegative() {
		return AddItemResult{}, domainagg.NewError(domainagg.CodeValidation, opCartAddItem, "unit price must be >= 0", nil)
	}
	now := nowOr(in.Now)

	var out AddItemResult
	err := executeWrite(ctx, a.deps.Base, opCartAddItem, func(dbc dbctx.Context) error {
		res := AddItemResult{}
		c, err := a.lockCart(dbc, opCartAddItem, in.CartID)
		if err != nil {
			return err
		}

		li, err := a.deps.Lines.GetByCartAndProduct(dbc, c.ID, in.ProductID)
		if err != nil {
			return err
		}
		if li == nil {
			li = domaincart.NewLineItem(c.ID, in.ProductID, in.Quantity, in.UnitPrice)
			if err := a.deps.Lines.Create(dbc, li); err != nil {
				return err
			}
			res.Created = true
		} else {
			if a.deps.PricePolicy == domainagg.PriceRefresh {
				li.UnitPrice = in.UnitPrice
			}
			li.AddQuantity(in.Quantity)
			li.UpdatedAt = now
			if err := a.deps.Lines.Save(dbc, li); err != nil {
				return err
			}
		}

		total, err := a.recomputeTotal(dbc, c.ID)
		if err != nil {
			return err
		}
		resumed, err := a.commitCart(dbc, c, total, now)
		if err != nil {
			return err
		}
		res.Item = *li
		res.CartTotal = total
		res.Resumed = resumed
		out = res
		return nil
	})
	if err != nil {
		return AddItemResult{}, err
	}
	return out, nil
}

func (a *cartAggregate) RemoveItem(ctx context.Context, in RemoveItemInput) (RemoveItemResult, error) {
	if err := a.validateDeps(); err != nil {
		return RemoveItemResult{}, err
	}
	if in.CartID == uuid.Nil || in.ProductID == uuid.Nil {
		return RemoveItemResult{}, domainagg.NewError(domainagg.CodeValidation, opCartRemoveItem, "cart_id and product_id are required", nil)
	}
	now := nowOr(in.Now)

	var out RemoveItemResult
	err := executeWrite(ctx, a.deps.Base, opCartRemoveItem, func(dbc dbctx.Context) error {
		res := RemoveItemResult{}
		c, err := a.lockCart(dbc, opCartRemoveItem, in.CartID)
		if err != nil {
			return err
		}
		li, err := a.deps.Lines.GetByCartAndProduct(dbc, c.ID, in.ProductID)
		if err != nil {
			return err
		}
		if li == nil {
			// Nothing to remove: the cart, its total and its idle clock stay as they are.
			res.CartTotal = c.TotalPrice
			out = res
			return nil
		}
		deleted, err := a.deps.Lines.Delete(dbc, li.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return ConflictError("line item vanished under cart lock")
		}

		total, err := a.recomputeTotal(dbc, c.ID)
		if err != nil {
			return err
		}
		if _, err := a.commitCart(dbc, c, total, now); err != nil {
			return err
		}
		prior := *li
		res.Removed = true
		res.Prior = &prior
		res.CartTotal = total
		out = res
		return nil
	})
	if err != nil {
		return RemoveItemResult{}, err
	}
	return out, nil
}

func (a *cartAggregate) MarkAbandonedIfIdle(ctx context.Context, in LifecycleInput) (bool, error) {
	if err := a.validateDeps(); err != nil {
		return false, err
	}
	if in.CartID == uuid.Nil {
		return false, domainagg.NewError(domainagg.CodeValidation, opCartMarkAbandoned, "cart_id is required", nil)
	}
	threshold := in.Threshold
	if threshold <= 0 {
		threshold = domainagg.DefaultAbandonAfter
	}
	now := nowOr(in.Now)

	marked := false
	err := executeWrite(ctx, a.deps.Base, opCartMarkAbandoned, func(dbc dbctx.Context) error {
		marked = false
		c, err := a.lockCart(dbc, opCartMarkAbandoned, in.CartID)
		if err != nil {
			return err
		}
		if c.IdleFor(now) < threshold {
			return nil
		}
		if c.Abandoned {
			marked = true
			return nil
		}
		if err := a.deps.Base.CASGuard.BumpVersion(dbc, cartTable, c.ID, c.Version,
			map[string]any{"abandoned": true},
			"cart version changed while marking abandoned"); err != nil {
			return err
		}
		marked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

func (a *cartAggregate) RemoveIfAbandoned(ctx context.Context, in LifecycleInput) (bool, error) {
	if err := a.validateDeps(); err != nil {
		return false, err
	}
	if in.CartID == uuid.Nil {
		return false, domainagg.NewError(domainagg.CodeValidation, opCartRemove, "cart_id is required", nil)
	}
	threshold := in.Threshold
	if threshold <= 0 {
		threshold = domainagg.DefaultRemoveAfter
	}
	now := nowOr(in.Now)

	removed := false
	err := executeWrite(ctx, a.deps.Base, opCartRemove, func(dbc dbctx.Context) error {
		removed = false
		c, err := a.lockCart(dbc, opCartRemove, in.CartID)
		if err != nil {
			return err
		}
		if c.IdleFor(now) < threshold {
			return nil
		}
		if _, err := a.deps.Lines.DeleteByCart(dbc, c.ID); err != nil {
			return err
		}
		deleted, err := a.deps.Carts.Delete(dbc, c.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return ConflictError("cart vanished under lock")
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (a *cartAggregate) GetCart(ctx context.Context, cartID uuid.UUID) (CartSnapshot, error) {
	if err := a.validateDeps(); err != nil {
		return CartSnapshot{}, err
	}
	if cartID == uuid.Nil {
		return CartSnapshot{}, domainagg.NewError(domainagg.CodeCartNotFound, opCartGet, "cart not found", nil)
	}
	// Cart row and lines come from one transaction with the row held FOR SHARE,
	// so a concurrent commit lands entirely before or after the snapshot.
	var (
		c     *types.Cart
		lines []*types.LineItem
	)
	err := a.deps.Base.Runner.InTx(ctx, func(dbc dbctx.Context) error {
		var err error
		if c, err = a.deps.Carts.LockForShare(dbc, cartID); err != nil || c == nil {
			return err
		}
		lines, err = a.deps.Lines.ListByCart(dbc, c.ID)
		return err
	})
	if err != nil {
		return CartSnapshot{}, persistenceFailure(opCartGet, MapError(opCartGet, err))
	}
	if c == nil {
		return CartSnapshot{}, domainagg.NewError(domainagg.CodeCartNotFound, opCartGet, "cart not found", nil)
	}
	snap := CartSnapshot{
		ID:                c.ID,
		Lines:             make([]SnapshotLine, 0, len(lines)),
		TotalPrice:        c.TotalPrice,
		Abandoned:         c.Abandoned,
		LastInteractionAt: c.LastInteractionAt.UTC(),
	}
	for _, li := range lines {
		if li == nil {
			continue
		}
		snap.Lines = append(snap.Lines, SnapshotLine{
			ProductID:  li.ProductID,
			Quantity:   li.Quantity,
			UnitPrice:  li.UnitPrice,
			TotalPrice: li.TotalPrice,
		})
	}
	return snap, nil
}

func (a *cartAggregate) validateDeps() error {
	if a == nil || a.deps.Base.DB == nil || a.deps.Carts == nil || a.deps.Lines == nil {
		return domainagg.NewError(domainagg.CodeInternal, "Cart.validateDeps", "cart aggregate missing dependencies", nil)
	}
	return nil
}

func (a *cartAggregate) lockCart(dbc dbctx.Context, op string, id uuid.UUID) (*types.Cart, error) {
	c, err := a.deps.Carts.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domainagg.NewError(domainagg.CodeCartNotFound, op, "cart not found", nil)
	}
	return c, nil
}

// recomputeTotal sums the persisted lines; the stored total is never used as a base.
func (a *cartAggregate) recomputeTotal(dbc dbctx.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	lines, err := a.deps.Lines.ListByCart(dbc, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	return domaincart.SumLineTotals(lines), nil
}

// commitCart writes the recomputed total and interaction time under version CAS.
// It reports whether the write cleared a previous abandoned flag.
func (a *cartAggregate) commitCart(dbc dbctx.Context, c *types.Cart, total decimal.Decimal, now time.Time) (bool, error) {
	touched := now
	if c.LastInteractionAt.After(touched) {
		touched = c.LastInteractionAt
	}
	updates := map[string]any{
		"total_price":         total,
		"last_interaction_at": touched.UTC(),
	}
	resumed := false
	if c.Abandoned && !a.deps.KeepAbandonedOnResume {
		updates["abandoned"] = false
		resumed = true
	}
	if err := a.deps.Base.CASGuard.BumpVersion(dbc, cartTable, c.ID, c.Version, updates, "cart version changed during write"); err != nil {
		return false, err
	}
	return resumed, nil
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

type (
	AddItemInput     = domainagg.AddItemInput
	AddItemResult    = domainagg.AddItemResult
	RemoveItemInput  = domainagg.RemoveItemInput
	RemoveItemResult = domainagg.RemoveItemResult
	LifecycleInput   = domainagg.LifecycleInput
	CartSnapshot     = domainagg.CartSnapshot
	SnapshotLine     = domainagg.SnapshotLine
)
