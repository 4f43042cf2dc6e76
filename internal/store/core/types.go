package core

import "time"

type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is a registered OAuth client. LastUsed has date granularity and is
// bumped whenever a token tied to the client is exercised.
type Client struct {
	ID         string     `json:"id"`
	ClientID   string     `json:"client_id"`
	Name       string     `json:"name"`
	SecretHash string     `json:"-"`
	Scopes     []string   `json:"scopes"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
}

// SSHKey is an SSH public key linked to an account.
type SSHKey struct {
	Fingerprint string    `json:"fingerprint"`
	Label       string    `json:"label"`
	Value       string    `json:"value"`
	AccountID   string    `json:"account_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// X509Certificate is an X.509 certificate linked to an account.
type X509Certificate struct {
	SubjectDN string    `json:"subject_dn"`
	IssuerDN  string    `json:"issuer_dn"`
	PEM       string    `json:"-"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}
