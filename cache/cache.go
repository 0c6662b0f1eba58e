// Package cache provides a typed JSON cache on redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICache defines a general caching interface
type ICache[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	Set(ctx context.Context, id string, v *T) error
	Delete(ctx context.Context, id string) error
}

// Cache stores values of T as JSON under {prefix}:{id}. A nil client turns
// every operation into a no-op miss.
type Cache[T any] struct {
	rc     redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewCache creates a Cache. A zero ttl keeps entries until deleted.
func NewCache[T any](rc redis.UniversalClient, prefix string, ttl time.Duration) *Cache[T] {
	return &Cache[T]{rc: rc, prefix: prefix, ttl: ttl}
}

// Key returns the redis key of id.
func (c *Cache[T]) Key(id string) string {
	return c.prefix + ":" + id
}

// Get returns the cached value, or nil on a miss.
func (c *Cache[T]) Get(ctx context.Context, id string) (*T, error) {
	if c == nil || c.rc == nil {
		return nil, nil
	}
	raw, err := c.rc.Get(ctx, c.Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &v, nil
}

// Set stores v.
func (c *Cache[T]) Set(ctx context.Context, id string, v *T) error {
	if c == nil || c.rc == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	if err := c.rc.Set(ctx, c.Key(id), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete removes id.
func (c *Cache[T]) Delete(ctx context.Context, id string) error {
	if c == nil || c.rc == nil {
		return nil
	}
	if err := c.rc.Del(ctx, c.Key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}
