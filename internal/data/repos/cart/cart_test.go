package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cart-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cart-backend/internal/domain"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
)

func TestCartRepoGetAndLock(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewCartRepo(db, testutil.Logger(t))

	now := time.Now().UTC().Truncate(time.Second)
	seeded := testutil.SeedCart(t, ctx, db, now, false)

	got, err := repo.GetByID(dbctx.Context{Ctx: ctx}, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.ID != seeded.ID {
		t.Fatalf("GetByID: want=%s got=%+v", seeded.ID, got)
	}
	if !got.LastInteractionAt.Equal(now) {
		t.Fatalf("last_interaction_at: want=%s got=%s", now, got.LastInteractionAt)
	}

	missing, err := repo.GetByID(dbctx.Context{Ctx: ctx}, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing: want=nil,nil got=%+v,%v", missing, err)
	}

	tx := testutil.Tx(t, db)
	locked, err := repo.LockByID(dbctx.Context{Ctx: ctx, Tx: tx}, seeded.ID)
	if err != nil {
		t.Fatalf("LockByID: %v", err)
	}
	if locked == nil || locked.ID != seeded.ID {
		t.Fatalf("LockByID: want=%s got=%+v", seeded.ID, locked)
	}
}

func TestCartRepoListIdleBeforePagesInIDOrder(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewCartRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	now := time.Now().UTC().Truncate(time.Second)
	cutoff := now.Add(-3 * time.Hour)

	idle := map[uuid.UUID]bool{}
	for i := 0; i < 5; i++ {
		c := testutil.SeedCart(t, ctx, db, cutoff.Add(-time.Duration(i)*time.Minute), false)
		idle[c.ID] = true
	}
	fresh := testutil.SeedCart(t, ctx, db, now, false)

	seen := map[uuid.UUID]int{}
	after := uuid.Nil
	for {
		page, err := repo.ListIdleBefore(dbc, cutoff, after, 2)
		if err != nil {
			t.Fatalf("ListIdleBefore: %v", err)
		}
		if len(page) == 0 {
			break
		}
		for _, c := range page {
			seen[c.ID]++
		}
		after = page[len(page)-1].ID
	}

	if seen[fresh.ID] != 0 {
		t.Fatalf("fresh cart should not be listed")
	}
	for id := range idle {
		if seen[id] != 1 {
			t.Fatalf("idle cart %s visits: want=1 got=%d", id, seen[id])
		}
	}
}

func TestCartRepoDelete(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewCartRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	c := testutil.SeedCart(t, ctx, db, time.Now().UTC(), false)
	ok, err := repo.Delete(dbc, c.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: want=true,nil got=%v,%v", ok, err)
	}
	ok, err = repo.Delete(dbc, c.ID)
	if err != nil || ok {
		t.Fatalf("Delete again: want=false,nil got=%v,%v", ok, err)
	}
}

func TestLineItemRepoUniquePerProduct(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	lines := NewLineItemRepo(db, log)
	dbc := dbctx.Context{Ctx: ctx}

	c := testutil.SeedCart(t, ctx, db, time.Now().UTC(), false)
	p := testutil.SeedProduct(t, ctx, db, "widget", "10.00")
	q := testutil.SeedProduct(t, ctx, db, "gadget", "2.50")

	first := testutil.SeedLine(t, ctx, db, c, p, 2)
	testutil.SeedLine(t, ctx, db, c, q, 1)

	dup := &types.LineItem{CartID: c.ID, ProductID: p.ID, Quantity: 1, UnitPrice: p.Price}
	dup.Recompute()
	if err := lines.Create(dbc, dup); err == nil {
		t.Fatalf("duplicate (cart, product) line should violate the unique index")
	}

	got, err := lines.GetByCartAndProduct(dbc, c.ID, p.ID)
	if err != nil || got == nil || got.ID != first.ID {
		t.Fatalf("GetByCartAndProduct: want=%s got=%+v err=%v", first.ID, got, err)
	}

	all, err := lines.ListByCart(dbc, c.ID)
	if err != nil {
		t.Fatalf("ListByCart: %v", err)
	}
	if len(all) != 2 || all[0].ProductID != p.ID {
		t.Fatalf("ListByCart order: got=%+v", all)
	}

	n, err := lines.DeleteByCart(dbc, c.ID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteByCart: want=2,nil got=%d,%v", n, err)
	}
}

func TestLineItemRepoRejectsNonPositiveQuantity(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	lines := NewLineItemRepo(db, testutil.Logger(t))

	c := testutil.SeedCart(t, ctx, db, time.Now().UTC(), false)
	p := testutil.SeedProduct(t, ctx, db, "widget", "10.00")

	li := &types.LineItem{CartID: c.ID, ProductID: p.ID, Quantity: 0, UnitPrice: p.Price}
	if err := lines.Create(dbctx.Context{Ctx: ctx}, li); err == nil {
		t.Fatalf("zero quantity line should violate the check constraint")
	}
}

func TestProductRepoGetByID(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	products := NewProductRepo(db, testutil.Logger(t))

	p := testutil.SeedProduct(t, ctx, db, "widget", "19.99")
	got, err := products.GetByID(dbctx.Context{Ctx: ctx}, p.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}
	if got.Price.String() != "19.99" {
		t.Fatalf("price: want=19.99 got=%s", got.Price)
	}
	missing, err := products.GetByID(dbctx.Context{Ctx: ctx}, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("missing product: want=nil,nil got=%+v,%v", missing, err)
	}
}
