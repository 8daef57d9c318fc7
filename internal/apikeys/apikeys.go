// Package apikeys loads and authenticates the API-key/secret pairs WS's
// Basic-auth middleware checks incoming requests against. Two Store
// implementations are provided, selected by API_KEY_SOURCE: a JSON file for
// local/dev deployments and a Postgres-backed one for production, both
// behind the same small interface so the HTTP layer never knows which one
// is active.
package apikeys

import (
	"context"
	"crypto/subtle"
	"sync"
)

// Entry is one registered caller: the public api_key and the secret it must
// pair with under HTTP Basic auth.
type Entry struct {
	APIKey       string
	SecretAPIKey string
}

// Store resolves and authenticates API-key/secret pairs, and can be told to
// reload its backing data without a process restart.
type Store interface {
	// Authenticate reports whether apiKey/secret is a currently active pair.
	Authenticate(ctx context.Context, apiKey, secret string) (bool, error)

	// Reload refreshes the store's in-memory view of active keys from its
	// backing source (file contents, or the database's active-keys
	// procedure).
	Reload(ctx context.Context) error
}

// memStore is the shared in-memory lookup both File and Postgres stores use
// once they've loaded their entries; it only differs in how Reload
// populates it.
type memStore struct {
	mu      sync.RWMutex
	entries map[string]string // api_key -> secret_api_key
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]string)}
}

func (s *memStore) Authenticate(_ context.Context, apiKey, secret string) (bool, error) {
	s.mu.RLock()
	want, ok := s.entries[apiKey]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	// constant-time compare: this is a credential check, not a map lookup.
	return subtle.ConstantTimeCompare([]byte(want), []byte(secret)) == 1, nil
}

func (s *memStore) replace(entries []Entry) {
	next := make(map[string]string, len(entries))
	for _, e := range entries {
		next[e.APIKey] = e.SecretAPIKey
	}

	s.mu.Lock()
	s.entries = next
	s.mu.Unlock()
}
