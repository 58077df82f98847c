package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos use Tx when set and fall back to their base handle otherwise.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Background is the non-transactional context used by read paths and tests.
func Background() Context {
	return Context{Ctx: context.Background()}
}
