package core

import "time"

// Token is an issued access token record. It references exactly one account
// and one client by id.
type Token struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	ClientID  string    `json:"client_id"`
	Scopes    []string  `json:"scopes"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is expired at the given instant.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// TokenFilter is an immutable query descriptor over the token store: an AND
// of the predicates that are present. Built once per request, never mutated.
type TokenFilter struct {
	clientID  string
	accountID string
}

// NewTokenFilter builds a filter. Empty arguments mean "match all" for that
// predicate.
func NewTokenFilter(clientID, accountID string) TokenFilter {
	return TokenFilter{clientID: clientID, accountID: accountID}
}

// ClientID returns the client-id predicate and whether it is present.
func (f TokenFilter) ClientID() (string, bool) {
	return f.clientID, f.clientID != ""
}

// AccountID returns the account-id predicate and whether it is present.
func (f TokenFilter) AccountID() (string, bool) {
	return f.accountID, f.accountID != ""
}

// Matches reports whether a token satisfies every present predicate.
func (f TokenFilter) Matches(t Token) bool {
	if f.clientID != "" && t.ClientID != f.clientID {
		return false
	}
	if f.accountID != "" && t.AccountID != f.accountID {
		return false
	}
	return true
}

// Page describes an offset page over a token listing. StartIndex is 1-based,
// matching the SCIM paging convention.
type Page struct {
	StartIndex int
	Count      int
}

// Offset converts the 1-based StartIndex into a 0-based offset.
func (p Page) Offset() int {
	if p.StartIndex < 1 {
		return 0
	}
	return p.StartIndex - 1
}
