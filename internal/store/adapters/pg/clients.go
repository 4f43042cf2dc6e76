package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/indigo-iam/iam-service/internal/store/core"
)

type clientRepo struct {
	pool *pgxpool.Pool
}

func (r *clientRepo) FindByClientID(ctx context.Context, clientID string) (*core.Client, error) {
	const query = `
		SELECT id, client_id, name, secret_hash, scopes, created_at, last_used
		FROM clients
		WHERE client_id = $1
	`
	var c core.Client
	err := r.pool.QueryRow(ctx, query, clientID).Scan(
		&c.ID, &c.ClientID, &c.Name, &c.SecretHash, &c.Scopes, &c.CreatedAt, &c.LastUsed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clientRepo) Create(ctx context.Context, c *core.Client) error {
	const query = `
		INSERT INTO clients (id, client_id, name, secret_hash, scopes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.ClientID, c.Name, c.SecretHash, c.Scopes, c.CreatedAt,
	)
	return mapConflict(err)
}

func (r *clientRepo) Delete(ctx context.Context, clientID string) error {
	const query = `DELETE FROM clients WHERE client_id = $1`
	tag, err := r.pool.Exec(ctx, query, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// BumpLastUsed advances last_used to today. The guard keeps it monotonic and
// makes same-day bumps no-ops, so concurrent bumps never fight.
func (r *clientRepo) BumpLastUsed(ctx context.Context, clientID string) error {
	const query = `
		UPDATE clients
		SET last_used = CURRENT_DATE
		WHERE client_id = $1
		  AND (last_used IS NULL OR last_used < CURRENT_DATE)
	`
	tag, err := r.pool.Exec(ctx, query, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either already bumped today or the client is unknown.
		const exists = `SELECT 1 FROM clients WHERE client_id = $1`
		var one int
		if err := r.pool.QueryRow(ctx, exists, clientID).Scan(&one); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return core.ErrNotFound
			}
			return err
		}
	}
	return nil
}
