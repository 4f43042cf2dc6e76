package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// SelectorKind identifies whom a scope policy applies to.
type SelectorKind string

const (
	SelectorAccount SelectorKind = "ACCOUNT"
	SelectorGroup   SelectorKind = "GROUP"
	SelectorDefault SelectorKind = "DEFAULT"
)

// PolicyEffect is the outcome a policy produces for matching scopes.
type PolicyEffect string

const (
	EffectPermit PolicyEffect = "PERMIT"
	EffectDeny   PolicyEffect = "DENY"
)

// MatchingRule selects how policy scopes are matched against requested scopes.
type MatchingRule string

const (
	RuleEq     MatchingRule = "EQ"
	RuleRegexp MatchingRule = "REGEXP"
)

// Selector is the principal selector of a scope policy. Ref is the account or
// group id; empty for DEFAULT policies.
type Selector struct {
	Kind SelectorKind `json:"kind"`
	Ref  string       `json:"ref,omitempty"`
}

// Key returns a stable string key for the selector, used to serialize
// concurrent policy creation per principal.
func (s Selector) Key() string {
	return string(s.Kind) + ":" + s.Ref
}

// ScopePolicy grants or denies a set of scopes to a principal selector.
// An empty scope set means the policy applies to every requested scope.
type ScopePolicy struct {
	ID          string       `json:"id"`
	Description string       `json:"description,omitempty"`
	Selector    Selector     `json:"selector"`
	Effect      PolicyEffect `json:"effect"`
	Rule        MatchingRule `json:"rule"`
	Scopes      []string     `json:"scopes"`
	CreatedAt   time.Time    `json:"created_at"`
}

// EquivalentTo reports whether two policies are equivalent: same selector,
// same effect, same matching rule and the same scope set (order-insensitive).
// Description and id are not part of the comparison.
func (p ScopePolicy) EquivalentTo(o ScopePolicy) bool {
	if p.Selector != o.Selector || p.Effect != o.Effect || p.Rule != o.Rule {
		return false
	}
	return scopeSetKey(p.Scopes) == scopeSetKey(o.Scopes)
}

// Fingerprint is a digest over the equivalence-relevant attributes. The pg
// schema keeps a unique index on it so two equivalent policies can never both
// be inserted, closing the concurrent-add race.
func (p ScopePolicy) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(p.Selector.Key()))
	h.Write([]byte{0})
	h.Write([]byte(p.Effect))
	h.Write([]byte{0})
	h.Write([]byte(p.Rule))
	h.Write([]byte{0})
	h.Write([]byte(scopeSetKey(p.Scopes)))
	return hex.EncodeToString(h.Sum(nil))
}

// scopeSetKey returns a canonical representation of a scope set: sorted,
// de-duplicated, joined. Scope names cannot contain spaces (see the
// validation package), so " " is a safe separator.
func scopeSetKey(scopes []string) string {
	if len(scopes) == 0 {
		return ""
	}
	set := make([]string, 0, len(scopes))
	seen := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		set = append(set, s)
	}
	sort.Strings(set)
	return strings.Join(set, " ")
}
