package cache

import (
	"context"
	"time"
)

// Cache is a read-through cache for catalog data. Get reports whether the key
// was present; a miss is not an error.
type Cache interface {
	Get(ctx context.Context, key string, value any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
