package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// NoExpiration keeps an entry until it is deleted or the cache is cleared
const NoExpiration = gocache.NoExpiration

var _ Cache[struct{}] = (*Memory[struct{}])(nil)

// Memory implements an in-memory cache safe for concurrent use
type Memory[T any] struct {
	cache *gocache.Cache
}

// NewMemory creates a new memory cache. A defaultTTL of NoExpiration keeps
// entries for the lifetime of the cache; cleanupInterval <= 0 disables the janitor.
func NewMemory[T any](defaultTTL time.Duration, cleanupInterval time.Duration) *Memory[T] {
	return &Memory[T]{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *Memory[T]) Get(key string) (T, bool) {
	if val, found := c.cache.Get(key); found {
		if typed, ok := val.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

// Set stores a value with the given TTL (0 uses the cache default)
func (c *Memory[T]) Set(key string, value T, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
}

// Add stores a value only if the key is absent and reports whether it did
func (c *Memory[T]) Add(key string, value T, ttl time.Duration) bool {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	return c.cache.Add(key, value, ttl) == nil
}

// Delete removes a value from the cache
func (c *Memory[T]) Delete(key string) {
	c.cache.Delete(key)
}

// Clear removes all values from the cache
func (c *Memory[T]) Clear() {
	c.cache.Flush()
}

// Len returns the number of cached entries, including expired ones not yet evicted
func (c *Memory[T]) Len() int {
	return c.cache.ItemCount()
}
