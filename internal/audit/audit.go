// Package audit models structured change notifications as one flat, tagged
// event type: a category, an optional account reference, a message and a
// closed set of payload variants. No event class hierarchies.
package audit

import "time"

// Category tags the event family.
type Category string

const (
	CategoryPolicy   Category = "POLICY"
	CategoryToken    Category = "TOKEN"
	CategoryBulk     Category = "BULK"
	CategoryAccount  Category = "ACCOUNT"
	CategorySecurity Category = "SECURITY"
)

// Payload is the closed set of structural event payloads. Implementations
// live in this package only.
type Payload interface {
	payloadKind() string
}

// PolicyChange describes a scope policy mutation.
type PolicyChange struct {
	PolicyID string   `json:"policy_id"`
	Action   string   `json:"action"` // "created" | "deleted"
	Selector string   `json:"selector"`
	Effect   string   `json:"effect"`
	Scopes   []string `json:"scopes,omitempty"`
}

// TokenRevocation describes one or more revoked tokens.
type TokenRevocation struct {
	TokenID  string `json:"token_id,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Count    int64  `json:"count"`
}

// TokenIssued describes a freshly issued token.
type TokenIssued struct {
	TokenID  string   `json:"token_id"`
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes,omitempty"`
}

// BulkRejection describes a bulk request rejected by the size gate.
type BulkRejection struct {
	Size int `json:"size"`
	Max  int `json:"max"`
}

// SSHKeyChange describes an SSH key linked to / removed from an account.
type SSHKeyChange struct {
	Fingerprint string `json:"fingerprint"`
	Action      string `json:"action"` // "added" | "removed"
}

// X509CertChange describes a certificate linked to / removed from an account.
type X509CertChange struct {
	SubjectDN string `json:"subject_dn"`
	Action    string `json:"action"` // "added" | "removed"
}

// TotpMFAChange describes a TOTP MFA settings change.
type TotpMFAChange struct {
	Action string `json:"action"` // "enabled" | "disabled"
}

func (PolicyChange) payloadKind() string    { return "policy-change" }
func (TokenRevocation) payloadKind() string { return "token-revocation" }
func (TokenIssued) payloadKind() string     { return "token-issued" }
func (BulkRejection) payloadKind() string   { return "bulk-rejection" }
func (SSHKeyChange) payloadKind() string    { return "ssh-key" }
func (X509CertChange) payloadKind() string  { return "x509-cert" }
func (TotpMFAChange) payloadKind() string   { return "totp-mfa" }

// Event is an audit notification. AccountRef is the id of the affected
// account, when there is one.
type Event struct {
	Category   Category  `json:"category"`
	AccountRef string    `json:"account_ref,omitempty"`
	Message    string    `json:"message"`
	Payload    Payload   `json:"payload,omitempty"`
	Time       time.Time `json:"time"`
}

// Kind returns the payload variant name, or "" for payload-less events.
func (e Event) Kind() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.payloadKind()
}
