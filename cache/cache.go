// Package cache provides a typed, namespaced key-value cache on top of a
// pluggable Store backend (Redis in production, in-memory for tests and
// degraded mode). Values are JSON-encoded; payloads above a configurable
// threshold are stored gzip-compressed behind a versioned tag prefix so the
// compression decision can change without breaking old entries.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/nibernar/project-service/logging/logger"
)

// Value tag prefixes. Entries without a known tag decode as plain JSON for
// compatibility with pre-tagging writers.
const (
	tagJSON = "js1|"
	tagGzip = "gz1|"
)

// DefaultCompressionThreshold is the encoded size above which values are
// compressed. Zero disables compression.
const DefaultCompressionThreshold = 1024

// Cache is a namespaced key-value cache. All public keys are transparently
// prefixed before reaching the backend and the prefix is stripped from keys
// returned to callers.
type Cache struct {
	store     Store
	prefix    string
	threshold int
	collector Collector
}

// Option configures a Cache.
type Option func(*Cache)

// WithCollector attaches a metrics collector.
func WithCollector(collector Collector) Option {
	return func(c *Cache) {
		if collector != nil {
			c.collector = collector
		}
	}
}

// WithCompressionThreshold overrides the compression threshold in bytes.
// Zero disables compression.
func WithCompressionThreshold(threshold int) Option {
	return func(c *Cache) {
		c.threshold = threshold
	}
}

// Keyspace builds the environment+domain namespace prefix for a cache.
func Keyspace(app, env, domain string) string {
	return fmt.Sprintf("%s:%s:%s:", app, env, domain)
}

// New creates a Cache over the given store with the given namespace prefix.
func New(store Store, prefix string, opts ...Option) *Cache {
	c := &Cache{
		store:     store,
		prefix:    prefix,
		threshold: DefaultCompressionThreshold,
		collector: NoOpCollector{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the backend key for a public key.
func (c *Cache) Key(key string) string {
	return c.prefix + key
}

func (c *Cache) stripPrefix(key string) string {
	return strings.TrimPrefix(key, c.prefix)
}

// Get retrieves a value into dest. It reports whether the key was present.
// Backend failures are logged and surface as a miss so the hot path never
// fails on cache trouble.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	start := time.Now()
	raw, found, err := c.store.Get(ctx, c.Key(key))
	c.collector.Command("get", time.Since(start), err)

	if err != nil {
		logger.Warnf(ctx, "cache get failed for key %s: %v", key, err)
		c.collector.Miss()
		return false, nil
	}
	if !found {
		c.collector.Miss()
		return false, nil
	}

	if err := decodeValue(raw, dest); err != nil {
		// Treat undecodable entries as absent; they will be rewritten.
		logger.Warnf(ctx, "cache entry for key %s is undecodable: %v", key, err)
		c.collector.Miss()
		return false, nil
	}

	c.collector.Hit()
	return true, nil
}

// Set stores a value under key with the given TTL. Every entry carries a
// bounded TTL; a non-positive ttl is rejected so nothing is cached forever.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}

	encoded, err := encodeValue(value, c.threshold)
	if err != nil {
		c.collector.Command("marshal", 0, err)
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	start := time.Now()
	err = c.store.Set(ctx, c.Key(key), encoded, ttl)
	c.collector.Command("set", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes one or more keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	backendKeys := make([]string, len(keys))
	for i, key := range keys {
		backendKeys[i] = c.Key(key)
	}

	start := time.Now()
	_, err := c.store.Delete(ctx, backendKeys...)
	c.collector.Command("del", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// Exists checks whether a key is present.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := c.store.Exists(ctx, c.Key(key))
	c.collector.Command("exists", time.Since(start), err)
	return ok, err
}

// SetExpiry resets the TTL of an existing key.
func (c *Cache) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	start := time.Now()
	_, err := c.store.Expire(ctx, c.Key(key), ttl)
	c.collector.Command("expire", time.Since(start), err)
	return err
}

// TTL returns the remaining lifetime of a key.
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	start := time.Now()
	d, err := c.store.TTL(ctx, c.Key(key))
	c.collector.Command("ttl", time.Since(start), err)
	return d, err
}

// Keys returns the public keys matching a glob pattern within this cache's
// namespace. The namespace prefix is stripped from the results.
func (c *Cache) Keys(ctx context.Context, pattern string) ([]string, error) {
	start := time.Now()
	raw, err := c.store.Scan(ctx, c.Key(pattern), 0)
	c.collector.Command("scan", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache keys: %w", err)
	}

	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = c.stripPrefix(k)
	}
	return keys, nil
}

// DeleteByPattern removes every key matching a glob pattern within this
// cache's namespace. Returns the number of deleted keys.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	start := time.Now()
	raw, err := c.store.Scan(ctx, c.Key(pattern), 0)
	if err != nil {
		c.collector.Command("scan", time.Since(start), err)
		return 0, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	c.collector.Command("scan", time.Since(start), nil)

	var deleted int64
	for i := 0; i < len(raw); i += scanBatchSize {
		end := min(i+scanBatchSize, len(raw))
		start = time.Now()
		n, err := c.store.Delete(ctx, raw[i:end]...)
		c.collector.Command("del", time.Since(start), err)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete cache keys: %w", err)
		}
		deleted += n
	}
	return deleted, nil
}

// Ping verifies backend connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// encodeValue marshals a value to the tagged wire form, compressing payloads
// above the threshold.
func encodeValue(value any, threshold int) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}

	if threshold > 0 && len(data) > threshold {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return "", err
		}
		if err := zw.Close(); err != nil {
			return "", err
		}
		return tagGzip + buf.String(), nil
	}

	return tagJSON + string(data), nil
}

// decodeValue reverses encodeValue, tolerating untagged legacy entries.
func decodeValue(raw string, dest any) error {
	switch {
	case strings.HasPrefix(raw, tagGzip):
		zr, err := gzip.NewReader(strings.NewReader(raw[len(tagGzip):]))
		if err != nil {
			return fmt.Errorf("corrupt compressed entry: %w", err)
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		if err != nil {
			return fmt.Errorf("corrupt compressed entry: %w", err)
		}
		return json.Unmarshal(data, dest)
	case strings.HasPrefix(raw, tagJSON):
		return json.Unmarshal([]byte(raw[len(tagJSON):]), dest)
	default:
		return json.Unmarshal([]byte(raw), dest)
	}
}
