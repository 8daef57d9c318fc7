// Package pkcache caches public keys resolved from a KeysetEndpoint so a
// repeated DVR referencing the same jku/kid doesn't re-fetch the JWKS on
// every request. Entries expire on a TTL and can be invalidated explicitly
// (the REST invalidation endpoint WS exposes).
package pkcache

import (
	"encoding/json"
	"fmt"

	"github.com/gl-zkPass/zkpass-core/internal/keys"
)

// Entry pairs a resolved public key with whether its TTL has lapsed.
type Entry struct {
	PublicKey keys.PublicKey
	Expired   bool
}

// Cache is the capability both the in-process and Redis-backed
// implementations provide.
type Cache interface {
	// Get returns the cached key for endpoint and whether it has expired,
	// or ok=false if nothing is cached for it. A read never evicts the
	// entry itself even if expired, matching the "never evicts on read;
	// just reports expiry" contract: callers decide whether to refetch.
	Get(endpoint keys.KeysetEndpoint) (entry Entry, ok bool)

	// Insert stores pk for endpoint, resetting its TTL.
	Insert(endpoint keys.KeysetEndpoint, pk keys.PublicKey)

	// Remove evicts the entry for endpoint, if any.
	Remove(endpoint keys.KeysetEndpoint)

	// RemoveExpired sweeps and evicts every entry whose TTL has lapsed.
	RemoveExpired()

	// List returns every currently cached, unexpired public key. Used by
	// the "return all cached keys" form of POST /public-keys.
	List() []keys.PublicKey
}

// cacheKey renders a KeysetEndpoint to its JSON-serialized cache key, so
// both backends key on the same stable string.
func cacheKey(endpoint keys.KeysetEndpoint) (string, error) {
	raw, err := json.Marshal(endpoint)
	if err != nil {
		return "", fmt.Errorf("marshal keyset endpoint: %w", err)
	}
	return string(raw), nil
}
