package sweep

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultLeaseKey = "cart-sweep:lease"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a single-holder Redis lock guarding a sweep pass across replicas.
type Lease struct {
	rdb   goredis.UniversalClient
	key   string
	ttl   time.Duration
	token string
}

func NewLease(rdb goredis.UniversalClient, key string, ttl time.Duration) *Lease {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultLeaseKey
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Lease{
		rdb:   rdb,
		key:   key,
		ttl:   ttl,
		token: uuid.NewString(),
	}
}

// Acquire reports whether this holder now owns the lease.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, fmt.Errorf("lease not initialized")
	}
	return l.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
}

// Release drops the lease if this holder still owns it.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
