package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Common TTLs for request-keyed caches.
const (
	DefaultTTL = 30 * time.Second
	HolderTTL  = 60 * time.Second
	SocialTTL  = 5 * time.Minute
)

type entry[T any] struct {
	data      T
	timestamp time.Time
}

// TTLCache is a process-local, request-keyed cache with a fixed TTL. There is
// no size bound; stale entries are swept by the go-cache janitor.
type TTLCache[T any] struct {
	ttl   time.Duration
	store *gocache.Cache
	now   func() time.Time
}

func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache[T]{
		ttl:   ttl,
		store: gocache.New(ttl, 2*ttl),
		now:   time.Now,
	}
}

func (c *TTLCache[T]) TTL() time.Duration { return c.ttl }

// Get returns the stored value if present and now - timestamp <= ttl.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	raw, ok := c.store.Get(key)
	if !ok {
		return zero, false
	}
	e, ok := raw.(*entry[T])
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.timestamp) > c.ttl {
		return zero, false
	}
	return e.data, true
}

// Set stores value under key, overwriting any previous entry.
func (c *TTLCache[T]) Set(key string, value T) {
	c.store.Set(key, &entry[T]{data: value, timestamp: c.now()}, gocache.DefaultExpiration)
}

func (c *TTLCache[T]) Delete(key string) {
	c.store.Delete(key)
}

// Clear drops every entry regardless of freshness.
func (c *TTLCache[T]) Clear() {
	c.store.Flush()
}

// Len counts stored entries, stale ones included until the janitor runs.
func (c *TTLCache[T]) Len() int {
	return c.store.ItemCount()
}

// Remember returns the cached value for key or calls fetch. Only successful
// fetches are stored, so a failing upstream is retried on the next call.
func Remember[T any](ctx context.Context, c *TTLCache[T], key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Key joins request parameters into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
