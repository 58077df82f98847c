package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/cart-backend/internal/data/aggregates"
	"github.com/yungbote/cart-backend/internal/data/repos"
	"github.com/yungbote/cart-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cart-backend/internal/domain"
	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
	"github.com/yungbote/cart-backend/internal/events"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
)

type sweepFixture struct {
	db     *gorm.DB
	carts  repos.CartRepo
	runs   repos.SweepRunRepo
	agg    domainagg.CartAggregate
	events *events.Recorder
}

func newSweepFixture(t *testing.T) sweepFixture {
	t.Helper()
	// Pass counts are asserted exactly, so each test needs a private database.
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	f := sweepFixture{
		db:     db,
		carts:  repos.NewCartRepo(db, log),
		runs:   repos.NewSweepRunRepo(db, log),
		events: &events.Recorder{},
	}
	f.agg = aggregates.NewCartAggregate(aggregates.CartAggregateDeps{
		Base:  aggregates.BaseDeps{DB: db, Log: log, Attempts: 2, Backoff: time.Millisecond},
		Carts: f.carts,
		Lines: repos.NewLineItemRepo(db, log),
	})
	return f
}

func (f sweepFixture) sweeper(t *testing.T, agg domainagg.CartAggregate, cfg Config) *Sweeper {
	t.Helper()
	return NewSweeper(Deps{
		Log:       testutil.Logger(t),
		Aggregate: agg,
		Carts:     f.carts,
		Runs:      f.runs,
		Publisher: f.events,
	}, cfg)
}

// failingAggregate fails lifecycle calls for selected carts and records every call.
type failingAggregate struct {
	domainagg.CartAggregate
	failRemove map[uuid.UUID]bool

	mu      sync.Mutex
	removes map[uuid.UUID]int
	marks   map[uuid.UUID]int
}

func (a *failingAggregate) RemoveIfAbandoned(ctx context.Context, in domainagg.LifecycleInput) (bool, error) {
	a.mu.Lock()
	a.removes[in.CartID]++
	a.mu.Unlock()
	if a.failRemove[in.CartID] {
		return false, domainagg.NewError(domainagg.CodePersistenceFailure, "test", "injected", nil)
	}
	return a.CartAggregate.RemoveIfAbandoned(ctx, in)
}

func (a *failingAggregate) MarkAbandonedIfIdle(ctx context.Context, in domainagg.LifecycleInput) (bool, error) {
	a.mu.Lock()
	a.marks[in.CartID]++
	a.mu.Unlock()
	return a.CartAggregate.MarkAbandonedIfIdle(ctx, in)
}

func TestRunPassMarksAndRemoves(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	active := testutil.SeedCart(t, ctx, f.db, now.Add(-10*time.Minute), false)
	idle := testutil.SeedCart(t, ctx, f.db, now.Add(-(3*time.Hour + time.Minute)), false)
	alreadyAbandoned := testutil.SeedCart(t, ctx, f.db, now.Add(-5*time.Hour), true)
	stale := testutil.SeedCart(t, ctx, f.db, now.Add(-(7*24*time.Hour + time.Hour)), true)
	p := testutil.SeedProduct(t, ctx, f.db, "p", "2.00")
	testutil.SeedLine(t, ctx, f.db, stale, p, 1)

	sum, err := f.sweeper(t, f.agg, Config{BatchSize: 2, Concurrency: 2}).RunPass(ctx, now, TriggerManual)
	require.NoError(t, err)
	require.Equal(t, 3, sum.Scanned)
	require.Equal(t, 1, sum.Marked)
	require.Equal(t, 1, sum.Removed)
	require.Equal(t, 1, sum.Untouched)
	require.Zero(t, sum.Failed)
	require.NotEqual(t, uuid.Nil, sum.RunID)

	dbc := dbctx.Context{Ctx: ctx}
	got, err := f.carts.GetByID(dbc, idle.ID)
	require.NoError(t, err)
	require.True(t, got.Abandoned)

	got, err = f.carts.GetByID(dbc, active.ID)
	require.NoError(t, err)
	require.False(t, got.Abandoned)

	got, err = f.carts.GetByID(dbc, alreadyAbandoned.ID)
	require.NoError(t, err)
	require.True(t, got.Abandoned)

	got, err = f.carts.GetByID(dbc, stale.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	require.Len(t, f.events.OfType(events.Abandoned), 1)
	require.Len(t, f.events.OfType(events.Removed), 1)

	runs, err := f.runs.ListRecent(dbc, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, sum.RunID, runs[0].ID)
	require.Equal(t, TriggerManual, runs[0].Trigger)
	require.Equal(t, 1, runs[0].Removed)
}

func TestRunPassIsIdempotent(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	testutil.SeedCart(t, ctx, f.db, now.Add(-4*time.Hour), false)

	s := f.sweeper(t, f.agg, Config{})
	first, err := s.RunPass(ctx, now, TriggerManual)
	require.NoError(t, err)
	require.Equal(t, 1, first.Marked)

	second, err := s.RunPass(ctx, now, TriggerManual)
	require.NoError(t, err)
	require.Zero(t, second.Marked)
	require.Zero(t, second.Removed)
	require.Equal(t, 1, second.Untouched)
}

func TestRunPassIsolatesPerCartFailures(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	bad := testutil.SeedCart(t, ctx, f.db, now.Add(-4*time.Hour), false)
	var good []uuid.UUID
	for i := 0; i < 5; i++ {
		good = append(good, testutil.SeedCart(t, ctx, f.db, now.Add(-4*time.Hour), false).ID)
	}

	agg := &failingAggregate{
		CartAggregate: f.agg,
		failRemove:    map[uuid.UUID]bool{bad.ID: true},
		removes:       map[uuid.UUID]int{},
		marks:         map[uuid.UUID]int{},
	}
	sum, err := f.sweeper(t, agg, Config{BatchSize: 2, Concurrency: 3}).RunPass(ctx, now, TriggerManual)
	require.NoError(t, err)
	require.Equal(t, 6, sum.Scanned)
	require.Equal(t, 5, sum.Marked)
	require.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Failures, 1)
	require.Equal(t, bad.ID, sum.Failures[0].CartID)
	require.Equal(t, StageRemove, sum.Failures[0].Stage)

	// Every cart is visited exactly once, and the failing one is never marked.
	for _, id := range good {
		require.Equal(t, 1, agg.removes[id])
		require.Equal(t, 1, agg.marks[id])
	}
	require.Equal(t, 1, agg.removes[bad.ID])
	require.Zero(t, agg.marks[bad.ID])

	runs, err := f.runs.ListRecent(dbctx.Context{Ctx: ctx}, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	var failures []Failure
	require.NoError(t, json.Unmarshal(runs[0].Failures, &failures))
	require.Len(t, failures, 1)
	require.Equal(t, bad.ID, failures[0].CartID)
}

func TestRunPassNeverMarksRemovedCart(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	c := testutil.SeedCart(t, ctx, f.db, now.Add(-8*24*time.Hour), false)

	agg := &failingAggregate{
		CartAggregate: f.agg,
		removes:       map[uuid.UUID]int{},
		marks:         map[uuid.UUID]int{},
	}
	sum, err := f.sweeper(t, agg, Config{}).RunPass(ctx, now, TriggerManual)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Removed)
	require.Zero(t, sum.Marked)
	require.Zero(t, agg.marks[c.ID])
}

func TestCandidatesListsWithoutWriting(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	idle := testutil.SeedCart(t, ctx, f.db, now.Add(-4*time.Hour), false)
	testutil.SeedCart(t, ctx, f.db, now.Add(-time.Hour), false)

	cands, err := f.sweeper(t, f.agg, Config{}).Candidates(ctx, now)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.Equal(t, idle.ID, cands[0].ID)

	got, err := f.carts.GetByID(dbctx.Context{Ctx: ctx}, idle.ID)
	require.NoError(t, err)
	require.False(t, got.Abandoned)
}

func TestRunPassReturnsScanError(t *testing.T) {
	f := newSweepFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := f.sweeper(t, f.agg, Config{}).RunPass(ctx, time.Now().UTC(), TriggerManual)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
	require.Zero(t, sum.Scanned)
}

// refreshingScanRepo hands the sweeper its scanned page only after touching
// one of the carts, so the page holds a stale last_interaction_at.
type refreshingScanRepo struct {
	repos.CartRepo
	once    sync.Once
	refresh func()
}

func (r *refreshingScanRepo) ListIdleBefore(dbc dbctx.Context, cutoff time.Time, afterID uuid.UUID, limit int) ([]*types.Cart, error) {
	page, err := r.CartRepo.ListIdleBefore(dbc, cutoff, afterID, limit)
	if err == nil && len(page) > 0 {
		r.once.Do(r.refresh)
	}
	return page, err
}

func TestRunPassDecidesOnLockedRowNotScan(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	c := testutil.SeedCart(t, ctx, f.db, now.Add(-8*24*time.Hour), true)
	p := testutil.SeedProduct(t, ctx, f.db, "p", "3.00")

	scan := &refreshingScanRepo{CartRepo: f.carts, refresh: func() {
		_, err := f.agg.AddItem(ctx, domainagg.AddItemInput{CartID: c.ID, ProductID: p.ID, Quantity: 1, UnitPrice: p.Price, Now: now})
		require.NoError(t, err)
	}}
	s := NewSweeper(Deps{
		Log:       testutil.Logger(t),
		Aggregate: f.agg,
		Carts:     scan,
		Runs:      f.runs,
		Publisher: f.events,
	}, Config{})

	sum, err := s.RunPass(ctx, now, TriggerManual)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Scanned)
	require.Zero(t, sum.Removed)
	require.Zero(t, sum.Marked)
	require.Equal(t, 1, sum.Untouched)

	got, err := f.carts.GetByID(dbctx.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "refreshed cart must survive the pass")
	require.False(t, got.Abandoned)
	require.True(t, got.LastInteractionAt.Equal(now))
	require.Empty(t, f.events.OfType(events.Removed))
	require.Empty(t, f.events.OfType(events.Abandoned))
}
