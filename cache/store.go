package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nibernar/project-service/config"
)

// Store is the low-level key-value backend consumed by Cache. Values are
// opaque strings; encoding and namespacing happen a layer above.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX sets the key only if it does not exist. Returns true when the
	// key was set.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Scan returns keys matching a glob pattern using bounded iteration,
	// never a blocking full-keyspace sweep.
	Scan(ctx context.Context, pattern string, limit int) ([]string, error)
	// CompareAndDelete deletes the key only if its current value equals
	// expected, as a single indivisible operation.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	Ping(ctx context.Context) error
}

// scanBatchSize bounds each SCAN round trip.
const scanBatchSize = 100

// compareAndDeleteScript performs check-value-then-delete atomically on the
// server side. A plain GET followed by DEL is a race and must not be used.
var compareAndDeleteScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// redisStore implements Store on a shared *redis.Client.
type redisStore struct {
	rc *redis.Client
}

// NewRedisStore wraps a Redis client as a Store.
func NewRedisStore(rc *redis.Client) Store {
	return &redisStore{rc: rc}
}

// NewRedisClient creates a Redis client from configuration and verifies
// connectivity.
func NewRedisClient(conf *config.Redis) (*redis.Client, error) {
	if conf == nil || conf.Addr == "" {
		return nil, errors.New("redis configuration is nil or empty")
	}

	rc := redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Username:     conf.Username,
		Password:     conf.Password,
		DB:           conf.Db,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
		DialTimeout:  conf.DialTimeout,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), conf.DialTimeout)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect error: %w", err)
	}

	return rc, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rc.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get key: %w", err)
	}
	return val, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.rc.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (s *redisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.rc.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to setnx key: %w", err)
	}
	return ok, nil
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.rc.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete keys: %w", err)
	}
	return n, nil
}

func (s *redisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rc.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}
	return n > 0, nil
}

func (s *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.rc.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set key expiration: %w", err)
	}
	return ok, nil
}

func (s *redisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.rc.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get key ttl: %w", err)
	}
	return d, nil
}

func (s *redisStore) Scan(ctx context.Context, pattern string, limit int) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		batch, next, err := s.rc.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, batch...)
		if limit > 0 && len(keys) >= limit {
			return keys[:limit], nil
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (s *redisStore) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, s.rc, []string{key}, expected).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to compare-and-delete key: %w", err)
	}
	return n > 0, nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.rc.Ping(ctx).Err()
}
