package cache

import "time"

// Cache defines the interface for in-process memoization keyed by subject
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T, ttl time.Duration)
	// Add stores value only if key is absent and reports whether it did
	Add(key string, value T, ttl time.Duration) bool
	Delete(key string)
	Clear()
	Len() int
}

// Key namespaces a subject identifier for a given kind of cached value
func Key(kind, subject string) string {
	return "feedlens:v1:" + kind + ":" + subject
}
