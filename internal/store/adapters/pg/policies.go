package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/indigo-iam/iam-service/internal/store/core"
)

type policyRepo struct {
	pool *pgxpool.Pool
}

// Listing order is creation order; the duplicate-policy error message
// enumerates conflicts in this order.
const policyColumns = `id, description, selector_kind, selector_ref, effect, rule, scopes, created_at`

func (r *policyRepo) FindAll(ctx context.Context) ([]core.ScopePolicy, error) {
	const query = `
		SELECT ` + policyColumns + `
		FROM scope_policies
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *policyRepo) FindByID(ctx context.Context, id string) (*core.ScopePolicy, error) {
	const query = `
		SELECT ` + policyColumns + `
		FROM scope_policies
		WHERE id = $1
	`
	var p core.ScopePolicy
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Description, &p.Selector.Kind, &p.Selector.Ref,
		&p.Effect, &p.Rule, &p.Scopes, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *policyRepo) FindBySelector(ctx context.Context, sel core.Selector) ([]core.ScopePolicy, error) {
	const query = `
		SELECT ` + policyColumns + `
		FROM scope_policies
		WHERE selector_kind = $1 AND selector_ref = $2
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, sel.Kind, sel.Ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *policyRepo) Save(ctx context.Context, p *core.ScopePolicy) error {
	const query = `
		INSERT INTO scope_policies
			(id, description, selector_kind, selector_ref, effect, rule, scopes, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Description, p.Selector.Kind, p.Selector.Ref,
		p.Effect, p.Rule, p.Scopes, p.Fingerprint(), p.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return core.ErrConflict
	}
	return err
}

func (r *policyRepo) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM scope_policies WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanPolicies(rows pgx.Rows) ([]core.ScopePolicy, error) {
	var out []core.ScopePolicy
	for rows.Next() {
		var p core.ScopePolicy
		if err := rows.Scan(
			&p.ID, &p.Description, &p.Selector.Kind, &p.Selector.Ref,
			&p.Effect, &p.Rule, &p.Scopes, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
