package pending

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open builds the repository for backend. dir is used by the file backend,
// dsn by the SQL ones. The returned close function is never nil.
func Open(ctx context.Context, backend, dir, dsn string) (Repository, func() error, error) {
	noop := func() error { return nil }

	switch backend {
	case BackendFile, "":
		repo, err := NewFileRepository(dir)
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil

	case BackendSQLite:
		db, err := sqlOpen("sqlite", dsn)
		if err != nil {
			return nil, noop, fmt.Errorf("db open error: %w", err)
		}
		if err := RunMigrations(ctx, db, "sqlite3"); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("migration error: %w", err)
		}
		return NewSQLiteRepository(db), db.Close, nil

	case BackendPostgres:
		db, err := sqlOpen("pgx", dsn)
		if err != nil {
			return nil, noop, fmt.Errorf("db open error: %w", err)
		}
		if err := RunMigrations(ctx, db, "postgres"); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("migration error: %w", err)
		}
		return NewPostgresRepository(db), db.Close, nil
	}

	return nil, noop, fmt.Errorf("unknown pending backend %q", backend)
}
