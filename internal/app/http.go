package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/cart-backend/internal/http"
	httpH "github.com/yungbote/cart-backend/internal/http/handlers"
	"github.com/yungbote/cart-backend/internal/observability"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Metrics *httpH.MetricsHandler
	Cart    *httpH.CartHandler
	Sweep   *httpH.SweepHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cfg Config, reposet Repos, serviceset Services, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(db),
		Metrics: httpH.NewMetricsHandler(metrics),
		Cart:    httpH.NewCartHandler(log, serviceset.Cart, serviceset.Catalog, cfg.SecureCookies),
		Sweep:   httpH.NewSweepHandler(serviceset.Sweeper, reposet.SweepRuns, nil),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.CORSOrigins,
		CartHandler:    handlers.Cart,
		SweepHandler:   handlers.Sweep,
		MetricsHandler: handlers.Metrics,
		HealthHandler:  handlers.Health,
	})
}
