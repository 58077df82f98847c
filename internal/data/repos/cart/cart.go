package cart

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/cart-backend/internal/domain"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

type CartRepo interface {
	Create(dbc dbctx.Context, c *types.Cart) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Cart, error)
	// LockByID reads the row FOR UPDATE; LockForShare reads it FOR SHARE so
	// concurrent readers do not block each other but writers wait.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Cart, error)
	LockForShare(dbc dbctx.Context, id uuid.UUID) (*types.Cart, error)
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
	// ListIdleBefore pages carts with last_interaction_at <= cutoff in id order,
	// starting strictly after afterID (uuid.Nil for the first page).
	ListIdleBefore(dbc dbctx.Context, cutoff time.Time, afterID uuid.UUID, limit int) ([]*types.Cart, error)
}

type cartRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCartRepo(db *gorm.DB, baseLog *logger.Logger) CartRepo {
	return &cartRepo{
		db:  db,
		log: baseLog.With("repo", "CartRepo"),
	}
}

func (r *cartRepo) Create(dbc dbctx.Context, c *types.Cart) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Create(c).Error
}

func (r *cartRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Cart, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var c types.Cart
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *cartRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Cart, error) {
	return r.lock(dbc, id, clause.LockingStrengthUpdate)
}

func (r *cartRepo) LockForShare(dbc dbctx.Context, id uuid.UUID) (*types.Cart, error) {
	return r.lock(dbc, id, clause.LockingStrengthShare)
}

func (r *cartRepo) lock(dbc dbctx.Context, id uuid.UUID, strength string) (*types.Cart, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var c types.Cart
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: strength}).
		Where("id = ?", id).
		Limit(1).
		Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *cartRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Cart{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *cartRepo) ListIdleBefore(dbc dbctx.Context, cutoff time.Time, afterID uuid.UUID, limit int) ([]*types.Cart, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 200
	}
	q := t.WithContext(dbc.Ctx).
		Model(&types.Cart{}).
		Where("last_interaction_at <= ?", cutoff)
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	var out []*types.Cart
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
