package apikeys

import (
	"context"
	"fmt"
)

const (
	SourceFile     = "file"
	SourceDatabase = "database"
)

// Config selects and parameterizes one Store backend.
type Config struct {
	Source   string
	FilePath string
	Postgres PostgresConfig
}

// New builds the Store named by cfg.Source, failing closed on an unknown or
// misconfigured source rather than starting with no authentication at all.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Source {
	case SourceFile:
		return NewFileStore(cfg.FilePath)
	case SourceDatabase:
		return NewPostgresStore(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("api key store: unknown API_KEY_SOURCE %q (want %q or %q)", cfg.Source, SourceFile, SourceDatabase)
	}
}
