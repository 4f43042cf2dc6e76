package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/indigo-iam/iam-service/internal/store/core"
)

type tokenRepo struct {
	pool *pgxpool.Pool
}

const tokenColumns = `id, account_id, client_id, scopes, issued_at, expires_at`

func (r *tokenRepo) Save(ctx context.Context, t *core.Token) error {
	const query = `
		INSERT INTO tokens (id, account_id, client_id, scopes, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		t.ID, t.AccountID, t.ClientID, t.Scopes, t.IssuedAt, t.ExpiresAt,
	)
	return err
}

func (r *tokenRepo) FindByID(ctx context.Context, id string) (*core.Token, error) {
	const query = `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE id = $1
	`
	var t core.Token
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.AccountID, &t.ClientID, &t.Scopes, &t.IssuedAt, &t.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// filterClause renders the optional predicates. args already carries the
// leading fixed arguments; the returned SQL continues from position
// len(args)+1.
func filterClause(f core.TokenFilter, args []any) (string, []any) {
	var sql string
	if clientID, ok := f.ClientID(); ok {
		args = append(args, clientID)
		sql += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	if accountID, ok := f.AccountID(); ok {
		args = append(args, accountID)
		sql += fmt.Sprintf(" AND account_id = $%d", len(args))
	}
	return sql, args
}

func (r *tokenRepo) FindByFilter(ctx context.Context, f core.TokenFilter, now time.Time, page core.Page) ([]core.Token, error) {
	args := []any{now}
	clause, args := filterClause(f, args)

	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE expires_at > $1` + clause + `
		ORDER BY issued_at, id`
	args = append(args, page.Count)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, page.Offset())
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Token
	for rows.Next() {
		var t core.Token
		if err := rows.Scan(
			&t.ID, &t.AccountID, &t.ClientID, &t.Scopes, &t.IssuedAt, &t.ExpiresAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *tokenRepo) CountByFilter(ctx context.Context, f core.TokenFilter, now time.Time) (int64, error) {
	args := []any{now}
	clause, args := filterClause(f, args)
	query := `SELECT COUNT(*) FROM tokens WHERE expires_at > $1` + clause

	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *tokenRepo) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM tokens WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteByFilter removes every matching token in one statement, so the
// operation is atomic with no extra transaction machinery.
func (r *tokenRepo) DeleteByFilter(ctx context.Context, f core.TokenFilter) (int64, error) {
	clause, args := filterClause(f, nil)
	query := `DELETE FROM tokens WHERE TRUE` + clause

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
