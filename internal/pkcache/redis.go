package pkcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gl-zkPass/zkpass-core/internal/keys"
)

// RedisConfig configures the distributed Cache backend, selected when the
// WS config's public_key_cache_redis_url is set, for horizontally-scaled WS deployments
// that need a shared cache rather than one per instance.
type RedisConfig struct {
	ConnectionURL string
	KeyPrefix     string
	TTL           time.Duration
}

// ErrEmptyConnectionURL mirrors the connection-validation style used
// elsewhere in the corpus for Redis configuration.
var ErrEmptyConnectionURL = errors.New("empty redis connection url")

// RedisCache is a second Cache implementation backed by go-redis, keeping
// Redis's own TTL as the source of expiry truth: a read against an expired
// key simply misses, there is no separate expiry bookkeeping to keep in
// sync.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to cfg.ConnectionURL and returns a Cache backed by
// it.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis connection url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = TTLFromEnv()
	}

	return &RedisCache{client: client, prefix: cfg.KeyPrefix, ttl: ttl}, nil
}

func (c *RedisCache) redisKey(endpoint keys.KeysetEndpoint) (string, error) {
	key, err := cacheKey(endpoint)
	if err != nil {
		return "", err
	}
	return c.prefix + key, nil
}

// Get never reports an entry as expired: once Redis has reaped a key past
// its TTL, the read is simply a cache miss.
func (c *RedisCache) Get(endpoint keys.KeysetEndpoint) (Entry, bool) {
	key, err := c.redisKey(endpoint)
	if err != nil {
		return Entry{}, false
	}

	raw, err := c.client.Get(context.Background(), key).Bytes()
	if err != nil {
		return Entry{}, false
	}

	var pk keys.PublicKey
	if err := json.Unmarshal(raw, &pk); err != nil {
		return Entry{}, false
	}

	return Entry{PublicKey: pk, Expired: false}, true
}

func (c *RedisCache) Insert(endpoint keys.KeysetEndpoint, pk keys.PublicKey) {
	key, err := c.redisKey(endpoint)
	if err != nil {
		return
	}
	raw, err := json.Marshal(pk)
	if err != nil {
		return
	}
	_ = c.client.Set(context.Background(), key, raw, c.ttl).Err()
}

func (c *RedisCache) Remove(endpoint keys.KeysetEndpoint) {
	key, err := c.redisKey(endpoint)
	if err != nil {
		return
	}
	_ = c.client.Del(context.Background(), key).Err()
}

// RemoveExpired is a no-op: Redis expires keys itself via the TTL passed to
// Insert.
func (c *RedisCache) RemoveExpired() {}

// List scans every key under the cache's prefix. Intended for the
// operational "dump what's cached" path, not a hot one. It walks the
// keyspace with incremental SCAN rather than KEYS, which blocks the server
// and could stall other Redis clients on a large keyspace.
func (c *RedisCache) List() []keys.PublicKey {
	ctx := context.Background()
	out := make([]keys.PublicKey, 0)

	var cursor uint64
	for {
		keysBatch, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return out
		}

		for _, k := range keysBatch {
			raw, err := c.client.Get(ctx, k).Bytes()
			if err != nil {
				continue
			}
			var pk keys.PublicKey
			if err := json.Unmarshal(raw, &pk); err != nil {
				continue
			}
			out = append(out, pk)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return out
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
