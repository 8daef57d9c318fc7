package pkcache

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gl-zkPass/zkpass-core/internal/clock"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
)

const (
	defaultTTLSeconds = 3600
	ttlEnvVar         = "TIMEOUT_IN_SECONDS"
)

// TTLFromEnv reads TIMEOUT_IN_SECONDS, falling back to the default (3600s)
// when unset or unparsable.
func TTLFromEnv() time.Duration {
	v := os.Getenv(ttlEnvVar)
	if v == "" {
		return defaultTTLSeconds * time.Second
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return defaultTTLSeconds * time.Second
	}
	return time.Duration(secs) * time.Second
}

type timedEntry struct {
	pk        keys.PublicKey
	expiresAt time.Time
}

// TimedCache is the default in-process Cache implementation: a mutex-guarded
// map keyed by JSON-serialized KeysetEndpoint, modeled on the issuer
// package's CachingDataSource entry/expiry pattern.
type TimedCache struct {
	ttl   time.Duration
	clock clock.Clock

	mu      sync.Mutex
	entries map[string]timedEntry
}

// NewTimedCache creates an empty cache with the given TTL and clock. Pass
// clock.NewSystemClock() in production and a clock.FixtureClock in tests.
func NewTimedCache(ttl time.Duration, c clock.Clock) *TimedCache {
	return &TimedCache{
		ttl:     ttl,
		clock:   c,
		entries: make(map[string]timedEntry),
	}
}

func (c *TimedCache) Get(endpoint keys.KeysetEndpoint) (Entry, bool) {
	key, err := cacheKey(endpoint)
	if err != nil {
		return Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}

	return Entry{
		PublicKey: e.pk,
		Expired:   c.clock.Now().After(e.expiresAt),
	}, true
}

func (c *TimedCache) Insert(endpoint keys.KeysetEndpoint, pk keys.PublicKey) {
	key, err := cacheKey(endpoint)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = timedEntry{
		pk:        pk,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

func (c *TimedCache) Remove(endpoint keys.KeysetEndpoint) {
	key, err := cacheKey(endpoint)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *TimedCache) RemoveExpired() {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

func (c *TimedCache) List() []keys.PublicKey {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]keys.PublicKey, 0, len(c.entries))
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			continue
		}
		out = append(out, e.pk)
	}
	return out
}
