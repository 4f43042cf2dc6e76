// Package policy implements the scope policy engine: administration of
// grant/deny rules and the policy decision point (PDP) that evaluates them.
//
// Evaluation precedence is account policies, then group policies for each
// group the account belongs to, then the DEFAULT (client-wide) policies. A
// scope decided at one level is frozen for the following levels; within a
// level any DENY beats any PERMIT; scopes no policy mentions are denied.
package policy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/indigo-iam/iam-service/internal/observability/logger"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

// Decision partitions the requested scopes into granted and denied sets.
// Both slices are sorted.
type Decision struct {
	Granted []string `json:"granted"`
	Denied  []string `json:"denied"`
}

// PDP is the policy decision point.
type PDP struct {
	policies core.PolicyRepository
	accounts core.AccountRepository
	matchers *matcherCache
}

func NewPDP(policies core.PolicyRepository, accounts core.AccountRepository) *PDP {
	return &PDP{
		policies: policies,
		accounts: accounts,
		matchers: newMatcherCache(time.Hour),
	}
}

// Evaluate decides the requested scopes for the given account.
func (p *PDP) Evaluate(ctx context.Context, accountID string, requested []string) (Decision, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("policy.pdp"),
		logger.Op("Evaluate"),
		logger.AccountID(accountID),
	)

	dc := newDecisionContext(requested)

	// Account-level policies.
	acct, err := p.policies.FindBySelector(ctx, core.Selector{Kind: core.SelectorAccount, Ref: accountID})
	if err != nil {
		return Decision{}, err
	}
	if err := p.applyLevel(dc, acct); err != nil {
		return Decision{}, err
	}
	dc.freezeProcessed()

	// Group-level policies, for each group the account belongs to.
	if dc.hasUnprocessed() {
		groups, err := p.accounts.GroupsOf(ctx, accountID)
		if err != nil {
			return Decision{}, err
		}
		for _, g := range groups {
			pols, err := p.policies.FindBySelector(ctx, core.Selector{Kind: core.SelectorGroup, Ref: g.ID})
			if err != nil {
				return Decision{}, err
			}
			if err := p.applyLevel(dc, pols); err != nil {
				return Decision{}, err
			}
		}
		dc.freezeProcessed()
	}

	// Default (client-wide) policies.
	if dc.hasUnprocessed() {
		defaults, err := p.policies.FindBySelector(ctx, core.Selector{Kind: core.SelectorDefault})
		if err != nil {
			return Decision{}, err
		}
		if err := p.applyLevel(dc, defaults); err != nil {
			return Decision{}, err
		}
	}

	d := dc.decision()
	log.Debug("scopes evaluated",
		logger.Scopes(requested),
		logger.Any("granted", d.Granted),
		logger.Any("denied", d.Denied),
	)
	return d, nil
}

// FilterScopes returns the subset of requested scopes the account is granted.
func (p *PDP) FilterScopes(ctx context.Context, accountID string, requested []string) ([]string, error) {
	d, err := p.Evaluate(ctx, accountID, requested)
	if err != nil {
		return nil, err
	}
	return d.Granted, nil
}

// EvaluateDefault decides the requested scopes against the DEFAULT policies
// only. Used at client registration, where no account is involved.
func (p *PDP) EvaluateDefault(ctx context.Context, requested []string) (Decision, error) {
	dc := newDecisionContext(requested)
	defaults, err := p.policies.FindBySelector(ctx, core.Selector{Kind: core.SelectorDefault})
	if err != nil {
		return Decision{}, err
	}
	if err := p.applyLevel(dc, defaults); err != nil {
		return Decision{}, err
	}
	return dc.decision(), nil
}

// applyLevel applies every policy of one precedence level to the scopes not
// yet frozen by an earlier level.
func (p *PDP) applyLevel(dc *decisionContext, pols []core.ScopePolicy) error {
	for _, pol := range pols {
		for _, scope := range dc.active() {
			ok, err := p.applicable(pol, scope)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if pol.Effect == core.EffectPermit {
				dc.permit(scope)
			} else {
				dc.deny(scope)
			}
		}
	}
	return nil
}

// applicable reports whether the policy says anything about the scope. A
// policy with an empty scope set applies to every scope.
func (p *PDP) applicable(pol core.ScopePolicy, scope string) (bool, error) {
	if len(pol.Scopes) == 0 {
		return true, nil
	}
	switch pol.Rule {
	case core.RuleEq:
		for _, ps := range pol.Scopes {
			if ps == scope {
				return true, nil
			}
		}
		return false, nil
	case core.RuleRegexp:
		for _, ps := range pol.Scopes {
			m, err := p.matchers.regexpFor(ps)
			if err != nil {
				return false, fmt.Errorf("policy %s: bad scope pattern %q: %w", pol.ID, ps, err)
			}
			if m.Matches(scope) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("policy %s: unknown matching rule %q", pol.ID, pol.Rule)
	}
}

// scopeStatus tracks the per-scope decision inside one evaluation.
type scopeStatus int

const (
	statusUnprocessed scopeStatus = iota
	statusPermit
	statusDeny
)

type decisionContext struct {
	status map[string]scopeStatus
	frozen map[string]scopeStatus
}

func newDecisionContext(requested []string) *decisionContext {
	dc := &decisionContext{
		status: make(map[string]scopeStatus, len(requested)),
		frozen: make(map[string]scopeStatus),
	}
	for _, s := range requested {
		if _, dup := dc.status[s]; !dup {
			dc.status[s] = statusUnprocessed
		}
	}
	return dc
}

// active returns the scopes still open for the current level.
func (dc *decisionContext) active() []string {
	out := make([]string, 0, len(dc.status))
	for s := range dc.status {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (dc *decisionContext) permit(scope string) {
	// A former DENY at the same level overrides the permit.
	if dc.status[scope] != statusDeny {
		dc.status[scope] = statusPermit
	}
}

func (dc *decisionContext) deny(scope string) {
	dc.status[scope] = statusDeny
}

// freezeProcessed moves every decided scope out of reach of later levels.
func (dc *decisionContext) freezeProcessed() {
	for s, st := range dc.status {
		if st != statusUnprocessed {
			dc.frozen[s] = st
			delete(dc.status, s)
		}
	}
}

func (dc *decisionContext) hasUnprocessed() bool {
	return len(dc.status) > 0
}

// decision folds frozen and still-open entries into the final Decision.
// Unprocessed scopes are denied.
func (dc *decisionContext) decision() Decision {
	var d Decision
	collect := func(m map[string]scopeStatus) {
		for s, st := range m {
			if st == statusPermit {
				d.Granted = append(d.Granted, s)
			} else {
				d.Denied = append(d.Denied, s)
			}
		}
	}
	collect(dc.frozen)
	collect(dc.status)
	sort.Strings(d.Granted)
	sort.Strings(d.Denied)
	return d
}
