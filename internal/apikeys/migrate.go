package apikeys

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrate applies every pending migration in migrations/ against the
// database cfg.ConnectionString points at. goose needs a database/sql
// connection rather than a pgx pool, so this opens a short-lived stdlib
// connection just for the migration run and closes it before returning;
// the long-lived pgxpool used for queries is opened separately.
func migrate(ctx context.Context, connectionString string) error {
	db, err := sql.Open("pgx", connectionString)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply api key migrations: %w", err)
	}
	return nil
}
