package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/indigo-iam/iam-service/internal/store/core"
)

type accountRepo struct {
	pool *pgxpool.Pool
}

func (r *accountRepo) FindByID(ctx context.Context, id string) (*core.Account, error) {
	const query = `
		SELECT id, username, email, active, created_at
		FROM accounts
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepo) FindByUsername(ctx context.Context, username string) (*core.Account, error) {
	const query = `
		SELECT id, username, email, active, created_at
		FROM accounts
		WHERE username = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, username))
}

func (r *accountRepo) scanOne(row pgx.Row) (*core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.Active, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) Create(ctx context.Context, a *core.Account) error {
	const query = `
		INSERT INTO accounts (id, username, email, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, a.ID, a.Username, a.Email, a.Active, a.CreatedAt)
	return mapConflict(err)
}

func (r *accountRepo) Update(ctx context.Context, a *core.Account) error {
	const query = `
		UPDATE accounts SET username = $2, email = $3, active = $4
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, a.ID, a.Username, a.Email, a.Active)
	if err != nil {
		return mapConflict(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM accounts WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *accountRepo) GroupsOf(ctx context.Context, accountID string) ([]core.Group, error) {
	const query = `
		SELECT g.id, g.name, g.created_at
		FROM groups g
		JOIN account_groups ag ON ag.group_id = g.id
		WHERE ag.account_id = $1
		ORDER BY g.created_at, g.id
	`
	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Group
	for rows.Next() {
		var g core.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *accountRepo) AddSSHKey(ctx context.Context, k *core.SSHKey) error {
	const query = `
		INSERT INTO account_ssh_keys (account_id, fingerprint, label, value, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, k.AccountID, k.Fingerprint, k.Label, k.Value, k.CreatedAt)
	return mapConflict(err)
}

func (r *accountRepo) RemoveSSHKey(ctx context.Context, accountID, fingerprint string) error {
	const query = `DELETE FROM account_ssh_keys WHERE account_id = $1 AND fingerprint = $2`
	tag, err := r.pool.Exec(ctx, query, accountID, fingerprint)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *accountRepo) SSHKeysOf(ctx context.Context, accountID string) ([]core.SSHKey, error) {
	const query = `
		SELECT account_id, fingerprint, label, value, created_at
		FROM account_ssh_keys
		WHERE account_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.SSHKey
	for rows.Next() {
		var k core.SSHKey
		if err := rows.Scan(&k.AccountID, &k.Fingerprint, &k.Label, &k.Value, &k.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *accountRepo) AddCertificate(ctx context.Context, c *core.X509Certificate) error {
	const query = `
		INSERT INTO account_certificates (account_id, subject_dn, issuer_dn, pem, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, c.AccountID, c.SubjectDN, c.IssuerDN, c.PEM, c.CreatedAt)
	return mapConflict(err)
}

func (r *accountRepo) RemoveCertificate(ctx context.Context, accountID, subjectDN string) error {
	const query = `DELETE FROM account_certificates WHERE account_id = $1 AND subject_dn = $2`
	tag, err := r.pool.Exec(ctx, query, accountID, subjectDN)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *accountRepo) CertificatesOf(ctx context.Context, accountID string) ([]core.X509Certificate, error) {
	const query = `
		SELECT account_id, subject_dn, issuer_dn, pem, created_at
		FROM account_certificates
		WHERE account_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.X509Certificate
	for rows.Next() {
		var c core.X509Certificate
		if err := rows.Scan(&c.AccountID, &c.SubjectDN, &c.IssuerDN, &c.PEM, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return core.ErrConflict
	}
	return err
}
