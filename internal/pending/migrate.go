package pending

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema for dialect ("postgres" or
// "sqlite3").
func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	var dir string
	switch dialect {
	case "postgres", "pgx":
		dir = "migrations/postgres"
	case "sqlite3", "sqlite":
		dialect, dir = "sqlite3", "migrations/sqlite"
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return err
	}
	return nil
}
