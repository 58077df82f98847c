package sweep

import (
	"gorm.io/gorm"

	types "github.com/yungbote/cart-backend/internal/domain"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

type SweepRunRepo interface {
	Create(dbc dbctx.Context, run *types.SweepRun) error
	ListRecent(dbc dbctx.Context, limit int) ([]*types.SweepRun, error)
}

type sweepRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSweepRunRepo(db *gorm.DB, baseLog *logger.Logger) SweepRunRepo {
	return &sweepRunRepo{
		db:  db,
		log: baseLog.With("repo", "SweepRunRepo"),
	}
}

func (r *sweepRunRepo) Create(dbc dbctx.Context, run *types.SweepRun) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Create(run).Error
}

func (r *sweepRunRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.SweepRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []*types.SweepRun
	if err := t.WithContext(dbc.Ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
