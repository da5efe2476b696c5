package flags

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSource reads flag values stored as plain strings under prefix+key
type RedisSource struct {
	client redis.Cmdable
	prefix string
}

// NewRedisSource connects to a Redis server at addr
func NewRedisSource(addr, prefix string) *RedisSource {
	return NewRedisSourceFromClient(redis.NewClient(&redis.Options{Addr: addr}), prefix)
}

// NewRedisSourceFromClient wraps an existing client
func NewRedisSourceFromClient(client redis.Cmdable, prefix string) *RedisSource {
	return &RedisSource{client: client, prefix: prefix}
}

// GetVariantFlag reads the flag; a missing key is absent, not an error
func (s *RedisSource) GetVariantFlag(ctx context.Context, key string) (Value, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return Absent, nil
	}
	if err != nil {
		return Absent, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return String(val), nil
}

// Close closes the underlying client when it owns a connection pool
func (s *RedisSource) Close() error {
	if c, ok := s.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
