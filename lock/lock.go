// Package lock provides a distributed mutual-exclusion primitive built on
// the cache store's atomic conditional write. Locks always carry a TTL so a
// crashed holder can never wedge a resource; a later caller proceeds once
// the lock self-expires, at worst regenerating work that was in flight.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nibernar/project-service/cache"
)

// Manager acquires and releases named locks against a shared Store.
type Manager struct {
	store  cache.Store
	prefix string
}

// New creates a lock manager. The prefix namespaces lock keys away from
// other cache domains.
func New(store cache.Store, prefix string) *Manager {
	return &Manager{store: store, prefix: prefix}
}

func (m *Manager) key(operation, resourceID string) string {
	return fmt.Sprintf("%s%s:%s", m.prefix, operation, resourceID)
}

// Acquire attempts to take the lock for (operation, resourceID) with the
// given TTL. It does not block or retry. On success it returns a fresh
// owner token, required for release; ok reports whether the lock was taken.
func (m *Manager) Acquire(ctx context.Context, operation, resourceID string, ttl time.Duration) (token string, ok bool, err error) {
	if ttl <= 0 {
		return "", false, fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}

	token = uuid.NewString()
	ok, err = m.store.SetNX(ctx, m.key(operation, resourceID), token, ttl)
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s/%s: %w", operation, resourceID, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the lock only when it is still held with the given token.
// The check and delete run as one indivisible backend operation; a release
// with a mismatched or absent token is a no-op returning false, leaving any
// newer holder's lock intact.
func (m *Manager) Release(ctx context.Context, operation, resourceID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	ok, err := m.store.CompareAndDelete(ctx, m.key(operation, resourceID), token)
	if err != nil {
		return false, fmt.Errorf("failed to release lock %s/%s: %w", operation, resourceID, err)
	}
	return ok, nil
}

// IsLocked reports whether the lock is currently held.
func (m *Manager) IsLocked(ctx context.Context, operation, resourceID string) (bool, error) {
	return m.store.Exists(ctx, m.key(operation, resourceID))
}
