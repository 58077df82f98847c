package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/cart-backend/internal/data/repos"
	types "github.com/yungbote/cart-backend/internal/domain"
	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
)

const opResolve = "Catalog.ResolveProduct"

// Lookup resolves a product and its current price.
type Lookup interface {
	ResolveProduct(ctx context.Context, productID uuid.UUID) (*types.Product, error)
}

type repoLookup struct {
	products repos.ProductRepo
}

func NewRepoLookup(products repos.ProductRepo) Lookup {
	return &repoLookup{products: products}
}

func (l *repoLookup) ResolveProduct(ctx context.Context, productID uuid.UUID) (*types.Product, error) {
	if productID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeProductNotFound, opResolve, "product not found", nil)
	}
	p, err := l.products.GetByID(dbctx.Context{Ctx: ctx}, productID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodePersistenceFailure, opResolve, "product lookup failed", err)
	}
	if p == nil {
		return nil, domainagg.NewError(domainagg.CodeProductNotFound, opResolve, "product not found", nil)
	}
	return p, nil
}
