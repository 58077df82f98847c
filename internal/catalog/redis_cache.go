package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/cart-backend/internal/domain"
	"github.com/yungbote/cart-backend/internal/observability"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

const (
	keyPrefix  = "catalog:product:"
	DefaultTTL = time.Minute
)

type redisCache struct {
	inner   Lookup
	rdb     goredis.UniversalClient
	ttl     time.Duration
	log     *logger.Logger
	metrics *observability.Metrics
}

// NewRedisCache wraps inner with a read-through product cache.
// Not-found answers are never cached, and any Redis error falls through to inner.
func NewRedisCache(inner Lookup, rdb goredis.UniversalClient, ttl time.Duration, log *logger.Logger, metrics *observability.Metrics) Lookup {
	if rdb == nil {
		return inner
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &redisCache{
		inner:   inner,
		rdb:     rdb,
		ttl:     ttl,
		log:     log.With("service", "CatalogRedisCache"),
		metrics: metrics,
	}
}

func cacheKey(id uuid.UUID) string { return keyPrefix + id.String() }

func (c *redisCache) ResolveProduct(ctx context.Context, productID uuid.UUID) (*types.Product, error) {
	key := cacheKey(productID)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p types.Product
		if jerr := json.Unmarshal(raw, &p); jerr == nil && p.ID == productID {
			c.metrics.IncCatalogLookup("redis", "hit")
			return &p, nil
		}
		c.log.Warn("discarding bad cached product", "product_id", productID)
	case errors.Is(err, goredis.Nil):
		c.metrics.IncCatalogLookup("redis", "miss")
	default:
		c.metrics.IncCatalogLookup("redis", "error")
		c.log.Warn("catalog cache read failed", "product_id", productID, "error", err)
	}

	p, err := c.inner.ResolveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if payload, jerr := json.Marshal(p); jerr == nil {
		if serr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			c.log.Warn("catalog cache write failed", "product_id", productID, "error", serr)
		}
	}
	return p, nil
}
