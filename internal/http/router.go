package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/cart-backend/internal/http/handlers"
	httpMW "github.com/yungbote/cart-backend/internal/http/middleware"
	"github.com/yungbote/cart-backend/internal/observability"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics
	// ServiceName labels otelgin spans.
	ServiceName string
	CORSOrigins []string

	CartHandler    *httpH.CartHandler
	SweepHandler   *httpH.SweepHandler
	MetricsHandler *httpH.MetricsHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachCartContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))
	r.Use(httpMW.Metrics(cfg.Metrics, "/metrics"))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", cfg.MetricsHandler.Serve)
	}

	api := r.Group("/api")
	{
		// Cart
		if cfg.CartHandler != nil {
			api.POST("/cart", cfg.CartHandler.Create)
			api.GET("/cart", cfg.CartHandler.Show)
			api.POST("/cart/add_item", cfg.CartHandler.AddItem)
			api.DELETE("/cart/:product_id", cfg.CartHandler.RemoveItem)
		}

		// Sweeps
		if cfg.SweepHandler != nil {
			api.GET("/sweeps", cfg.SweepHandler.List)
			api.POST("/sweeps/run", cfg.SweepHandler.Run)
		}
	}

	return r
}
