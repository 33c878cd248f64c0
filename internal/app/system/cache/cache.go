// Package cache is a typed, TTL-bound in-memory cache over go-cache. The
// workgroup overview uses it for item status counts.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Cache holds values of one type. A Cache with a non-positive TTL stores
// nothing and always loads.
type Cache[V any] struct {
	name string
	ttl  time.Duration
	c    *gocache.Cache
	log  *zap.Logger
}

// New creates a cache whose entries expire after ttl.
func New[V any](name string, ttl time.Duration, log *zap.Logger) *Cache[V] {
	if log == nil {
		log = zap.NewNop()
	}
	cleanup := 2 * ttl
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Cache[V]{
		name: name,
		ttl:  ttl,
		c:    gocache.New(ttl, cleanup),
		log:  log,
	}
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}
	raw, found := c.c.Get(key)
	if !found {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		c.log.Error("cache entry has wrong type", zap.String("cache", c.name), zap.String("key", key))
		return zero, false
	}
	return v, true
}

// Set stores v under key for the cache's TTL.
func (c *Cache[V]) Set(key string, v V) {
	if c.ttl <= 0 {
		return
	}
	c.c.Set(key, v, c.ttl)
}

// Delete drops the given keys.
func (c *Cache[V]) Delete(keys ...string) {
	for _, k := range keys {
		c.c.Delete(k)
	}
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors are not cached.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		c.log.Debug("cache hit", zap.String("cache", c.name), zap.String("key", key))
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}
