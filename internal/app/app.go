package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/cart-backend/internal/data/db"
	"github.com/yungbote/cart-backend/internal/events"
	apphttp "github.com/yungbote/cart-backend/internal/http"
	"github.com/yungbote/cart-backend/internal/observability"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
	Metrics  *observability.Metrics

	store        *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg := LoadConfig(log)

	deps, err := wireCore(context.Background(), log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, deps.DB, cfg, deps.Repos, deps.Services, deps.Metrics)
	deps.Router = wireRouter(log, cfg, handlerset, deps.Metrics)
	return deps, nil
}

// NewWorker wires everything except the HTTP surface, for one-shot commands.
func NewWorker(cfg Config, log *logger.Logger) (*App, error) {
	return wireCore(context.Background(), log, cfg)
}

func wireCore(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, observability.LoadOtelConfig(cfg.ServiceName, cfg.Environment))

	store, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("store automigrate: %w", err)
	}
	theDB := store.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		if metrics, err = observability.New(); err != nil {
			log.Warn("metrics init failed (continuing without metrics)", "error", err)
			metrics = nil
		}
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = store.Close()
		return nil, err
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clients,
		Metrics:      metrics,
		store:        store,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work: the sweep scheduler, collectors and the
// standalone metrics listener.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.Metrics.Addr)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}

	if a.Cfg.Redis.LogEvents && a.Clients.Redis != nil {
		log := a.Log.With("component", "CartEventLog")
		if err := events.Subscribe(ctx, log, a.Clients.Redis, a.Cfg.Redis.EventsChannel, func(evt events.Event) {
			log.Info("cart event", "type", evt.Type, "cart_id", evt.CartID, "total_price", evt.TotalPrice)
		}); err != nil {
			a.Log.Warn("cart event log subscription failed", "error", err)
		}
	}

	return startScheduler(ctx, a.Log, a.Cfg, a.Clients, a.Services.Sweeper, a.Metrics)
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("HTTP listening", "addr", addr)
	return (&apphttp.Server{Engine: a.Router}).Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.Services.Events != nil {
		_ = a.Services.Events.Close()
	}
	a.Clients.Close()
	if a.Metrics != nil {
		_ = a.Metrics.Shutdown(ctx)
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
