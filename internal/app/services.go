package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/cart-backend/internal/catalog"
	"github.com/yungbote/cart-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
	"github.com/yungbote/cart-backend/internal/events"
	"github.com/yungbote/cart-backend/internal/jobs/sweep"
	"github.com/yungbote/cart-backend/internal/observability"
	"github.com/yungbote/cart-backend/internal/platform/logger"
	"github.com/yungbote/cart-backend/internal/services"
)

type Services struct {
	Aggregate domainagg.CartAggregate
	Catalog   catalog.Lookup
	Events    events.Publisher
	Cart      services.CartService
	Sweeper   *sweep.Sweeper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	agg := aggregates.NewCartAggregate(aggregates.CartAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:       db,
			Log:      log,
			Hooks:    aggregates.NewObservabilityHooks(metrics, log),
			Attempts: cfg.Cart.WriteAttempts,
			Backoff:  cfg.Cart.WriteBackoff,
			Timeout:  cfg.Cart.WriteTimeout,
		},
		Carts:                 reposet.Cart,
		Lines:                 reposet.LineItem,
		PricePolicy:           domainagg.ParsePricePolicy(cfg.Cart.PricePolicy),
		KeepAbandonedOnResume: !cfg.Cart.ClearAbandonedOnResume,
	})

	lookup := catalog.NewRepoLookup(reposet.Product)
	pub := events.Noop()
	if clients.Redis != nil {
		lookup = catalog.NewRedisCache(lookup, clients.Redis, cfg.Redis.CatalogCacheTTL, log, metrics)
		p, err := events.NewRedisPublisher(log, clients.Redis, cfg.Redis.EventsChannel, metrics)
		if err != nil {
			return Services{}, fmt.Errorf("init cart events: %w", err)
		}
		pub = p
	}

	cartSvc := services.NewCartService(services.CartServiceDeps{
		Log:       log,
		Aggregate: agg,
		Carts:     reposet.Cart,
		Catalog:   lookup,
		Publisher: pub,
	})

	sweeper := sweep.NewSweeper(sweep.Deps{
		Log:       log,
		Aggregate: agg,
		Carts:     reposet.Cart,
		Runs:      reposet.SweepRuns,
		Publisher: pub,
		Metrics:   metrics,
	}, sweep.Config{
		AbandonAfter: cfg.Cart.AbandonAfter,
		RemoveAfter:  cfg.Cart.RemoveAfter,
		BatchSize:    cfg.Sweep.BatchSize,
		Concurrency:  cfg.Sweep.Concurrency,
	})

	return Services{
		Aggregate: agg,
		Catalog:   lookup,
		Events:    pub,
		Cart:      cartSvc,
		Sweeper:   sweeper,
	}, nil
}
