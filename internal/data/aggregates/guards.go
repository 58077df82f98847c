package aggregates

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cart-backend/internal/platform/dbctx"
)

// CASGuard applies version checked updates. A row whose version moved since
// it was read is reported as a conflict, which executeWrite retries.
type CASGuard struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db, now: time.Now}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// BumpVersion writes updates to the row id only while its version still
// equals expected, setting version to expected+1 and stamping updated_at.
// The updates map is not modified.
func (g CASGuard) BumpVersion(dbc dbctx.Context, table string, id uuid.UUID, expected int, updates map[string]any, conflictMsg string) error {
	db, err := g.baseDB(dbc)
	if err != nil {
		return err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return ValidationError("table and id are required for a versioned update")
	}
	if expected < 0 {
		return ValidationError("expected version must be >= 0")
	}
	if len(updates) == 0 {
		return ValidationError("updates must not be empty")
	}
	now := g.now
	if now == nil {
		now = time.Now
	}
	row := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		row[k] = v
	}
	row["version"] = expected + 1
	row["updated_at"] = now().UTC()

	res := db.Table(table).Where("id = ? AND version = ?", id, expected).Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		msg := strings.TrimSpace(conflictMsg)
		if msg == "" {
			msg = "version mismatch"
		}
		return ConflictError(msg)
	}
	return nil
}
