package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
	"github.com/dmitrijs2005/hotspotkeeper/internal/dbx"
)

// SQLiteRepository stores requests in the pending_requests table of a local
// SQLite database.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, username string) (*Request, error) {
	req := &Request{}
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password, ip, package FROM pending_requests WHERE username = ?`,
		username).Scan(&req.Username, &req.Credential, &req.Address, &req.Package)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get pending request %s: %w", username, err)
	}
	return req, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, req *Request) error {
	if err := ValidateUsername(req.Username); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_requests (username, password, ip, package) VALUES (?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			password = excluded.password,
			ip = excluded.ip,
			package = excluded.package
	`, req.Username, req.Credential, req.Address, req.Package)
	if err != nil {
		return fmt.Errorf("failed to save pending request %s: %w", req.Username, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_requests WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("failed to delete pending request %s: %w", username, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, password, ip, package FROM pending_requests ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.Username, &req.Credential, &req.Address, &req.Package); err != nil {
			return nil, fmt.Errorf("failed to scan pending request row: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending request rows: %w", err)
	}
	return out, nil
}
