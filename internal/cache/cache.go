package cache

import (
	"context"
	"time"

	"github.com/inkwell-cms/inkgate/internal/domain"
)

// Store is a key/value cache with per-entry TTL. Implementations must be
// safe for concurrent use. Get reports a miss with ok=false; expired
// entries are misses.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Strategies maps a cache strategy to its backing store. A nil store (or an
// unmapped strategy) disables caching for endpoints using it, which is how
// the CDN strategy is handled at this layer.
type Strategies struct {
	InMemory Store
	Redis    Store
}

// For returns the store serving the given strategy, or nil if the strategy
// does not cache at this layer.
func (s Strategies) For(strategy domain.CacheStrategy) Store {
	switch strategy {
	case domain.CacheInMemory:
		return s.InMemory
	case domain.CacheRedis:
		return s.Redis
	default:
		return nil
	}
}
