package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
	"github.com/dmitrijs2005/hotspotkeeper/internal/dbx"
)

// PostgresDB is what PostgresRepository needs from *sql.DB.
type PostgresDB interface {
	dbx.DBTX
	dbx.TxBeginner
}

// PostgresRepository stores requests in PostgreSQL. Deleting a request moves
// its non-secret fields into pending_archive in the same transaction.
type PostgresRepository struct {
	db PostgresDB
}

func NewPostgresRepository(db PostgresDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, username string) (*Request, error) {
	query :=
		`SELECT username, password, ip, package FROM pending_requests
		 WHERE username = $1
		 `

	req := &Request{}
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&req.Username, &req.Credential, &req.Address, &req.Package)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return req, nil
}

func (r *PostgresRepository) Save(ctx context.Context, req *Request) error {
	if err := ValidateUsername(req.Username); err != nil {
		return err
	}

	query :=
		`INSERT INTO pending_requests (username, password, ip, package)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username) DO UPDATE
		 SET password = EXCLUDED.password, ip = EXCLUDED.ip, package = EXCLUDED.package
		 `

	if _, err := r.db.ExecContext(ctx, query, req.Username, req.Credential, req.Address, req.Package); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, username string) error {
	archive :=
		`INSERT INTO pending_archive (username, ip, package, created_at)
		 SELECT username, ip, package, created_at FROM pending_requests
		 WHERE username = $1
		 `
	remove :=
		`DELETE FROM pending_requests
		 WHERE username = $1
		 `

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, archive, username); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, remove, username)
		return err
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Request, error) {
	query :=
		`SELECT username, password, ip, package FROM pending_requests
		 ORDER BY username
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.Username, &req.Credential, &req.Address, &req.Package); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
