// Package mem implements the store interfaces with in-process maps. Used in
// development and as the test double for the services; semantics mirror the
// pg adapter, including the unique policy fingerprint constraint and the
// all-or-nothing DeleteByFilter.
package mem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/indigo-iam/iam-service/internal/store/core"
)

type Store struct {
	mu sync.RWMutex

	policies     []core.ScopePolicy
	tokens       []core.Token
	accounts     map[string]core.Account
	memberships  map[string][]string // account id -> group ids
	groups       map[string]core.Group
	clients      map[string]core.Client
	sshKeys      map[string][]core.SSHKey
	certificates map[string][]core.X509Certificate

	// DeleteTokenHook is a fault-injection point for atomicity tests: it runs
	// for every token DeleteByFilter is about to remove, before any removal
	// takes effect. A returned error aborts the whole operation.
	DeleteTokenHook func(id string) error
}

func New() *Store {
	return &Store{
		accounts:     make(map[string]core.Account),
		memberships:  make(map[string][]string),
		groups:       make(map[string]core.Group),
		clients:      make(map[string]core.Client),
		sshKeys:      make(map[string][]core.SSHKey),
		certificates: make(map[string][]core.X509Certificate),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

func (s *Store) Policies() core.PolicyRepository { return (*policyRepo)(s) }
func (s *Store) Tokens() core.TokenRepository    { return (*tokenRepo)(s) }
func (s *Store) Accounts() core.AccountRepository {
	return (*accountRepo)(s)
}
func (s *Store) Clients() core.ClientRepository { return (*clientRepo)(s) }

// ─── PolicyRepository ───

type policyRepo Store

func (r *policyRepo) FindAll(context.Context) ([]core.ScopePolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ScopePolicy, len(r.policies))
	copy(out, r.policies)
	return out, nil
}

func (r *policyRepo) FindByID(_ context.Context, id string) (*core.ScopePolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.policies {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *policyRepo) FindBySelector(_ context.Context, sel core.Selector) ([]core.ScopePolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.ScopePolicy
	for _, p := range r.policies {
		if p.Selector == sel {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *policyRepo) Save(_ context.Context, p *core.ScopePolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fp := p.Fingerprint()
	for _, e := range r.policies {
		if e.Fingerprint() == fp {
			return core.ErrConflict
		}
	}
	r.policies = append(r.policies, *p)
	return nil
}

func (r *policyRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.policies {
		if p.ID == id {
			r.policies = append(r.policies[:i], r.policies[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// ─── TokenRepository ───

type tokenRepo Store

func (r *tokenRepo) Save(_ context.Context, t *core.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, *t)
	return nil
}

func (r *tokenRepo) FindByID(_ context.Context, id string) (*core.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tokens {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *tokenRepo) FindByFilter(_ context.Context, f core.TokenFilter, now time.Time, page core.Page) ([]core.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := r.matchValid(f, now)
	lo := page.Offset()
	if lo > len(matched) {
		lo = len(matched)
	}
	hi := len(matched)
	if page.Count > 0 && lo+page.Count < hi {
		hi = lo + page.Count
	}
	out := make([]core.Token, hi-lo)
	copy(out, matched[lo:hi])
	return out, nil
}

func (r *tokenRepo) CountByFilter(_ context.Context, f core.TokenFilter, now time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.matchValid(f, now))), nil
}

// matchValid returns the non-expired tokens matching the filter, in issuance
// order. Callers hold the lock.
func (r *tokenRepo) matchValid(f core.TokenFilter, now time.Time) []core.Token {
	var out []core.Token
	for _, t := range r.tokens {
		if t.Expired(now) || !f.Matches(t) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out
}

func (r *tokenRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tokens {
		if t.ID == id {
			r.tokens = append(r.tokens[:i], r.tokens[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (r *tokenRepo) DeleteByFilter(_ context.Context, f core.TokenFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Stage the removal first: the hook (and any future failure point) runs
	// before anything is mutated, so a mid-flight error leaves the store
	// untouched.
	var keep []core.Token
	var removed int64
	for _, t := range r.tokens {
		if !f.Matches(t) {
			keep = append(keep, t)
			continue
		}
		if r.DeleteTokenHook != nil {
			if err := r.DeleteTokenHook(t.ID); err != nil {
				return 0, err
			}
		}
		removed++
	}
	r.tokens = keep
	return removed, nil
}

// ─── AccountRepository ───

type accountRepo Store

func (r *accountRepo) FindByID(_ context.Context, id string) (*core.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &a, nil
}

func (r *accountRepo) FindByUsername(_ context.Context, username string) (*core.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Username == username {
			cp := a
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *accountRepo) Create(_ context.Context, a *core.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.accounts[a.ID]; dup {
		return core.ErrConflict
	}
	for _, e := range r.accounts {
		if e.Username == a.Username {
			return core.ErrConflict
		}
	}
	r.accounts[a.ID] = *a
	return nil
}

func (r *accountRepo) Update(_ context.Context, a *core.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.ID]; !ok {
		return core.ErrNotFound
	}
	r.accounts[a.ID] = *a
	return nil
}

func (r *accountRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.accounts, id)
	delete(r.memberships, id)
	delete(r.sshKeys, id)
	delete(r.certificates, id)
	return nil
}

func (r *accountRepo) GroupsOf(_ context.Context, accountID string) ([]core.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.Group
	for _, gid := range r.memberships[accountID] {
		if g, ok := r.groups[gid]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *accountRepo) AddSSHKey(_ context.Context, k *core.SSHKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.sshKeys[k.AccountID] {
		if e.Fingerprint == k.Fingerprint {
			return core.ErrConflict
		}
	}
	r.sshKeys[k.AccountID] = append(r.sshKeys[k.AccountID], *k)
	return nil
}

func (r *accountRepo) RemoveSSHKey(_ context.Context, accountID, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := r.sshKeys[accountID]
	for i, k := range keys {
		if k.Fingerprint == fingerprint {
			r.sshKeys[accountID] = append(keys[:i], keys[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (r *accountRepo) SSHKeysOf(_ context.Context, accountID string) ([]core.SSHKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SSHKey, len(r.sshKeys[accountID]))
	copy(out, r.sshKeys[accountID])
	return out, nil
}

func (r *accountRepo) AddCertificate(_ context.Context, c *core.X509Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.certificates[c.AccountID] {
		if e.SubjectDN == c.SubjectDN {
			return core.ErrConflict
		}
	}
	r.certificates[c.AccountID] = append(r.certificates[c.AccountID], *c)
	return nil
}

func (r *accountRepo) RemoveCertificate(_ context.Context, accountID, subjectDN string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	certs := r.certificates[accountID]
	for i, c := range certs {
		if c.SubjectDN == subjectDN {
			r.certificates[accountID] = append(certs[:i], certs[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (r *accountRepo) CertificatesOf(_ context.Context, accountID string) ([]core.X509Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.X509Certificate, len(r.certificates[accountID]))
	copy(out, r.certificates[accountID])
	return out, nil
}

// AddMembership links an account to a group, creating the group if needed.
// Test/bootstrap helper; not part of the repository interfaces.
func (s *Store) AddMembership(accountID string, g core.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	s.memberships[accountID] = append(s.memberships[accountID], g.ID)
}

// ─── ClientRepository ───

type clientRepo Store

func (r *clientRepo) FindByClientID(_ context.Context, clientID string) (*core.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &c, nil
}

func (r *clientRepo) Create(_ context.Context, c *core.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.clients[c.ClientID]; dup {
		return core.ErrConflict
	}
	r.clients[c.ClientID] = *c
	return nil
}

func (r *clientRepo) Delete(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[clientID]; !ok {
		return core.ErrNotFound
	}
	delete(r.clients, clientID)
	return nil
}

func (r *clientRepo) BumpLastUsed(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return core.ErrNotFound
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if c.LastUsed == nil || c.LastUsed.Before(today) {
		c.LastUsed = &today
		r.clients[clientID] = c
	}
	return nil
}
