package apikeys

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig mirrors the connection-pool knobs the foundation pg package
// documents (PG_CONN_URL, PG_MAX_OPEN_CONNS, ...), trimmed to what a
// read-mostly api-keys table needs.
type PostgresConfig struct {
	ConnectionString string
	MaxOpenConns     int32
	MaxConnIdleTime  time.Duration
	MaxConnLifetime  time.Duration
}

// PostgresStore backs Store with a Postgres database, reloading its
// in-memory view by calling the GetActiveApiKeys() stored procedure
// (see internal/apikeys/migrations).
type PostgresStore struct {
	*memStore
	pool *pgxpool.Pool
}

// NewPostgresStore opens a connection pool against cfg and loads the
// currently-active keys once before returning.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("postgres api key store: empty connection string")
	}

	if err := migrate(ctx, cfg.ConnectionString); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = cfg.MaxOpenConns
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{memStore: newMemStore(), pool: pool}
	if err := s.Reload(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Reload calls GetActiveApiKeys() and replaces the in-memory entry set with
// whatever comes back. A failed reload leaves the previous entries intact,
// so a transient database hiccup does not lock every caller out.
func (s *PostgresStore) Reload(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, "SELECT api_key, secret_api_key FROM GetActiveApiKeys()")
	if err != nil {
		return fmt.Errorf("query active api keys: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.APIKey, &e.SecretAPIKey); err != nil {
			return fmt.Errorf("scan active api key row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate active api key rows: %w", err)
	}

	s.replace(entries)
	return nil
}
