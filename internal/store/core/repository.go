package core

import (
	"context"
	"time"
)

// PolicyRepository persists scope policies. FindAll and FindBySelector return
// policies in stable store iteration order (creation order for the bundled
// adapters); duplicate-detection error messages depend on that ordering.
type PolicyRepository interface {
	FindAll(ctx context.Context) ([]ScopePolicy, error)
	FindByID(ctx context.Context, id string) (*ScopePolicy, error)
	FindBySelector(ctx context.Context, sel Selector) ([]ScopePolicy, error)
	Save(ctx context.Context, p *ScopePolicy) error
	DeleteByID(ctx context.Context, id string) error
}

// TokenRepository persists issued tokens. Find/Count only consider tokens
// valid at the given instant; DeleteByFilter must be atomic (all matching
// rows removed, or none on failure).
type TokenRepository interface {
	Save(ctx context.Context, t *Token) error
	FindByID(ctx context.Context, id string) (*Token, error)
	FindByFilter(ctx context.Context, f TokenFilter, now time.Time, page Page) ([]Token, error)
	CountByFilter(ctx context.Context, f TokenFilter, now time.Time) (int64, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByFilter(ctx context.Context, f TokenFilter) (int64, error)
}

// AccountRepository persists accounts and resolves group memberships for
// policy evaluation precedence.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id string) error
	GroupsOf(ctx context.Context, accountID string) ([]Group, error)

	// Linked credentials
	AddSSHKey(ctx context.Context, k *SSHKey) error
	RemoveSSHKey(ctx context.Context, accountID, fingerprint string) error
	SSHKeysOf(ctx context.Context, accountID string) ([]SSHKey, error)
	AddCertificate(ctx context.Context, c *X509Certificate) error
	RemoveCertificate(ctx context.Context, accountID, subjectDN string) error
	CertificatesOf(ctx context.Context, accountID string) ([]X509Certificate, error)
}

// ClientRepository persists registered OAuth clients.
type ClientRepository interface {
	FindByClientID(ctx context.Context, clientID string) (*Client, error)
	Create(ctx context.Context, c *Client) error
	Delete(ctx context.Context, clientID string) error
	// BumpLastUsed sets the client's last-used date to the current date.
	// Monotonic bump, safe under concurrent calls for the same client.
	BumpLastUsed(ctx context.Context, clientID string) error
}

// Store aggregates the repositories plus lifecycle hooks.
type Store interface {
	Ping(ctx context.Context) error
	Close()

	Policies() PolicyRepository
	Tokens() TokenRepository
	Accounts() AccountRepository
	Clients() ClientRepository
}
