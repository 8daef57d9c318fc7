package apikeys

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileStore backs Store with a JSON array of Entry on disk, read fully into
// memory on construction and on every Reload. Intended for local/dev
// deployments where rotating a secrets file is good enough.
type FileStore struct {
	*memStore
	path string
}

// NewFileStore loads path immediately, returning an error if it cannot be
// read or decoded.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{memStore: newMemStore(), path: path}
	if err := s.Reload(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads and decodes path, replacing the in-memory entry set
// atomically on success. A failed reload leaves the previous entries intact.
func (s *FileStore) Reload(_ context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read api key file %s: %w", s.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode api key file %s: %w", s.path, err)
	}

	s.replace(entries)
	return nil
}
