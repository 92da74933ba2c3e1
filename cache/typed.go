package cache

import (
	"context"
	"time"
)

// Typed is a generic convenience wrapper binding a Cache to a single value
// type, so callers get pointers back instead of passing destinations.
type Typed[T any] struct {
	c *Cache
}

// NewTyped wraps a Cache for values of type T.
func NewTyped[T any](c *Cache) Typed[T] {
	return Typed[T]{c: c}
}

// Get retrieves the value for key. A miss returns (nil, nil).
func (t Typed[T]) Get(ctx context.Context, key string) (*T, error) {
	var row T
	found, err := t.c.Get(ctx, key, &row)
	if err != nil || !found {
		return nil, err
	}
	return &row, nil
}

// Set stores the value under key with the given TTL.
func (t Typed[T]) Set(ctx context.Context, key string, value *T, ttl time.Duration) error {
	return t.c.Set(ctx, key, value, ttl)
}

// Delete removes the value under key.
func (t Typed[T]) Delete(ctx context.Context, key string) error {
	return t.c.Delete(ctx, key)
}

// Exists checks whether the key is present.
func (t Typed[T]) Exists(ctx context.Context, key string) (bool, error) {
	return t.c.Exists(ctx, key)
}

// SetExpiry resets the TTL of an existing key.
func (t Typed[T]) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	return t.c.SetExpiry(ctx, key, ttl)
}
