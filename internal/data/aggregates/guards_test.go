package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cart-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cart-backend/internal/domain"
	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
)

func TestCASGuardBumpVersion(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	c := testutil.SeedCart(t, ctx, db, time.Now().Add(-time.Hour), false)

	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	guard := NewCASGuard(db)
	guard.now = func() time.Time { return stamp }
	dbc := dbctx.Context{Ctx: ctx}

	updates := map[string]any{"abandoned": true}
	if err := guard.BumpVersion(dbc, cartTable, c.ID, 0, updates, "stale"); err != nil {
		t.Fatalf("first bump: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("caller map was modified: %v", updates)
	}

	var got types.Cart
	if err := db.First(&got, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Version != 1 || !got.Abandoned || !got.UpdatedAt.Equal(stamp) {
		t.Fatalf("unexpected row: version=%d abandoned=%v updated_at=%v", got.Version, got.Abandoned, got.UpdatedAt)
	}

	err := guard.BumpVersion(dbc, cartTable, c.ID, 0, map[string]any{"abandoned": false}, "stale")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("stale version: want conflict got=%v", err)
	}
	if !domainagg.IsCode(MapError(domainagg.OpCartMarkAbandoned, err), domainagg.CodeConflict) {
		t.Fatalf("mapped stale version: want conflict code got=%v", MapError(domainagg.OpCartMarkAbandoned, err))
	}
}

func TestCASGuardValidatesInput(t *testing.T) {
	guard := NewCASGuard(nil)
	dbc := dbctx.Background()
	if err := guard.BumpVersion(dbc, cartTable, uuid.New(), 0, map[string]any{"abandoned": true}, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing db: want validation got=%v", err)
	}

	guard = NewCASGuard(testutil.SQLite(t))
	cases := []struct {
		name     string
		table    string
		id       uuid.UUID
		expected int
		updates  map[string]any
	}{
		{"no table", "", uuid.New(), 0, map[string]any{"abandoned": true}},
		{"nil id", cartTable, uuid.Nil, 0, map[string]any{"abandoned": true}},
		{"negative version", cartTable, uuid.New(), -1, map[string]any{"abandoned": true}},
		{"no updates", cartTable, uuid.New(), 0, nil},
	}
	for _, tc := range cases {
		if err := guard.BumpVersion(dbc, tc.table, tc.id, tc.expected, tc.updates, ""); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: want validation got=%v", tc.name, err)
		}
	}
}
