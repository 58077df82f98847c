package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/cart-backend/internal/catalog"
	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
	"github.com/yungbote/cart-backend/internal/events"
	"github.com/yungbote/cart-backend/internal/jobs/sweep"
	"github.com/yungbote/cart-backend/internal/platform/envutil"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

const (
	SchedulerTicker   = "ticker"
	SchedulerTemporal = "temporal"
	SchedulerOff      = "off"
)

type Config struct {
	ServiceName   string `yaml:"service_name"`
	Environment   string `yaml:"environment"`
	Port          string `yaml:"port"`
	SecureCookies bool   `yaml:"secure_cookies"`

	// CORSOrigins replaces the local dev origin list when set.
	CORSOrigins []string `yaml:"cors_origins"`

	Cart    CartConfig    `yaml:"cart"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type CartConfig struct {
	AbandonAfter           time.Duration `yaml:"abandon_after"`
	RemoveAfter            time.Duration `yaml:"remove_after"`
	ClearAbandonedOnResume bool          `yaml:"clear_abandoned_on_resume"`
	PricePolicy            string        `yaml:"price_policy"`
	WriteAttempts          int           `yaml:"write_attempts"`
	WriteBackoff           time.Duration `yaml:"write_backoff"`
	WriteTimeout           time.Duration `yaml:"write_timeout"`
}

type SweepConfig struct {
	Scheduler   string        `yaml:"scheduler"`
	Interval    time.Duration `yaml:"interval"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `yaml:"concurrency"`
	LeaseTTL    time.Duration `yaml:"lease_ttl"`
	// PassesBeforeContinue bounds one Temporal workflow run.
	PassesBeforeContinue int `yaml:"passes_before_continue"`
}

type RedisConfig struct {
	Addr            string        `yaml:"addr"`
	Password        string        `yaml:"-"`
	DB              int           `yaml:"db"`
	CatalogCacheTTL time.Duration `yaml:"catalog_cache_ttl"`
	EventsChannel   string        `yaml:"events_channel"`
	LogEvents       bool          `yaml:"log_events"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func defaultConfig() Config {
	return Config{
		ServiceName: "cart-backend",
		Environment: "development",
		Port:        "8080",
		Cart: CartConfig{
			AbandonAfter:           domainagg.DefaultAbandonAfter,
			RemoveAfter:            domainagg.DefaultRemoveAfter,
			ClearAbandonedOnResume: true,
			PricePolicy:            string(domainagg.PriceCaptured),
			WriteAttempts:          3,
			WriteBackoff:           25 * time.Millisecond,
			WriteTimeout:           5 * time.Second,
		},
		Sweep: SweepConfig{
			Scheduler:   SchedulerTicker,
			Interval:    sweep.DefaultInterval,
			BatchSize:   sweep.DefaultBatchSize,
			Concurrency: sweep.DefaultConcurrency,
			LeaseTTL:    2 * time.Minute,
		},
		Redis: RedisConfig{
			CatalogCacheTTL: catalog.DefaultTTL,
			EventsChannel:   events.DefaultChannel,
		},
	}
}

// LoadConfig layers defaults, the optional CONFIG_FILE yaml document and the
// environment, in that order.
func LoadConfig(log *logger.Logger) Config {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			log.Warn("config file ignored", "path", path, "error", err)
		} else {
			log.Info("config file loaded", "path", path)
		}
	}
	applyEnv(&cfg)
	normalize(log, &cfg)
	return cfg
}

func loadConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.SecureCookies = envutil.Bool("SECURE_COOKIES", cfg.SecureCookies)
	if raw := envutil.String("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}

	cfg.Cart.AbandonAfter = envutil.Duration("CART_ABANDON_AFTER", cfg.Cart.AbandonAfter)
	cfg.Cart.RemoveAfter = envutil.Duration("CART_REMOVE_AFTER", cfg.Cart.RemoveAfter)
	cfg.Cart.ClearAbandonedOnResume = envutil.Bool("CART_CLEAR_ABANDONED_ON_RESUME", cfg.Cart.ClearAbandonedOnResume)
	cfg.Cart.PricePolicy = envutil.String("CART_PRICE_POLICY", cfg.Cart.PricePolicy)
	cfg.Cart.WriteAttempts = envutil.Int("CART_WRITE_ATTEMPTS", cfg.Cart.WriteAttempts)
	cfg.Cart.WriteBackoff = envutil.Duration("CART_WRITE_BACKOFF", cfg.Cart.WriteBackoff)
	cfg.Cart.WriteTimeout = envutil.Duration("CART_WRITE_TIMEOUT", cfg.Cart.WriteTimeout)

	cfg.Sweep.Scheduler = envutil.String("SWEEP_SCHEDULER", cfg.Sweep.Scheduler)
	cfg.Sweep.Interval = envutil.Duration("SWEEP_INTERVAL", cfg.Sweep.Interval)
	cfg.Sweep.BatchSize = envutil.Int("SWEEP_BATCH_SIZE", cfg.Sweep.BatchSize)
	cfg.Sweep.Concurrency = envutil.Int("SWEEP_CONCURRENCY", cfg.Sweep.Concurrency)
	cfg.Sweep.LeaseTTL = envutil.Duration("SWEEP_LEASE_TTL", cfg.Sweep.LeaseTTL)
	cfg.Sweep.PassesBeforeContinue = envutil.Int("SWEEP_PASSES_BEFORE_CONTINUE", cfg.Sweep.PassesBeforeContinue)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.CatalogCacheTTL = envutil.Duration("CATALOG_CACHE_TTL", cfg.Redis.CatalogCacheTTL)
	cfg.Redis.EventsChannel = envutil.String("CART_EVENTS_CHANNEL", cfg.Redis.EventsChannel)
	cfg.Redis.LogEvents = envutil.Bool("CART_EVENTS_LOG", cfg.Redis.LogEvents)

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Addr = envutil.String("METRICS_ADDR", cfg.Metrics.Addr)
}

func normalize(log *logger.Logger, cfg *Config) {
	cfg.Sweep.Scheduler = strings.ToLower(strings.TrimSpace(cfg.Sweep.Scheduler))
	switch cfg.Sweep.Scheduler {
	case SchedulerTicker, SchedulerTemporal, SchedulerOff:
	default:
		log.Warn("unknown sweep scheduler; using ticker", "scheduler", cfg.Sweep.Scheduler)
		cfg.Sweep.Scheduler = SchedulerTicker
	}
	cfg.Cart.PricePolicy = string(domainagg.ParsePricePolicy(strings.ToLower(strings.TrimSpace(cfg.Cart.PricePolicy))))
	if cfg.Cart.AbandonAfter <= 0 {
		cfg.Cart.AbandonAfter = domainagg.DefaultAbandonAfter
	}
	if cfg.Cart.RemoveAfter <= 0 {
		cfg.Cart.RemoveAfter = domainagg.DefaultRemoveAfter
	}
	if cfg.Cart.RemoveAfter <= cfg.Cart.AbandonAfter {
		log.Warn("removal threshold does not exceed abandon threshold; idle carts will be removed without being marked first",
			"abandon_after", cfg.Cart.AbandonAfter, "remove_after", cfg.Cart.RemoveAfter)
	}
	if cfg.Cart.WriteAttempts < 1 {
		cfg.Cart.WriteAttempts = 1
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
