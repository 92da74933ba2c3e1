package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// memoryStore is an in-process Store used by tests and as a degraded-mode
// fallback when no Redis backend is configured. It offers the same
// per-operation semantics as the Redis store, including TTL expiry and
// atomic compare-and-delete, but no cross-process visibility.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]memoryEntry)}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// get returns the live entry for key, pruning it when expired.
// Caller must hold mu.
func (s *memoryStore) get(key string, now time.Time) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if e.expired(now) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key, time.Now())
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.entries[key] = memoryEntry{value: value, expiresAt: expiry(now, ttl)}
	return nil
}

func (s *memoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if _, ok := s.get(key, now); ok {
		return false, nil
	}
	s.entries[key] = memoryEntry{value: value, expiresAt: expiry(now, ttl)}
	return true, nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var n int64
	for _, key := range keys {
		if _, ok := s.get(key, now); ok {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.get(key, time.Now())
	return ok, nil
}

func (s *memoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e, ok := s.get(key, now)
	if !ok {
		return false, nil
	}
	e.expiresAt = expiry(now, ttl)
	s.entries[key] = e
	return true, nil
}

func (s *memoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e, ok := s.get(key, now)
	if !ok {
		return -2 * time.Second, nil // mirrors Redis: key does not exist
	}
	if e.expiresAt.IsZero() {
		return -1 * time.Second, nil // no expiry
	}
	return e.expiresAt.Sub(now), nil
}

func (s *memoryStore) Scan(_ context.Context, pattern string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var keys []string
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			continue
		}
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
			if limit > 0 && len(keys) >= limit {
				break
			}
		}
	}
	return keys, nil
}

func (s *memoryStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key, time.Now())
	if !ok || e.value != expected {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

func (s *memoryStore) Ping(context.Context) error {
	return nil
}
