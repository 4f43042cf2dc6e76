package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indigo-iam/iam-service/internal/store/adapters/mem"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

type fixture struct {
	st  *mem.Store
	pdp *PDP
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := mem.New()
	require.NoError(t, st.Accounts().Create(context.Background(), &core.Account{ID: "a1", Username: "alice", Active: true}))
	return &fixture{st: st, pdp: NewPDP(st.Policies(), st.Accounts())}
}

func (f *fixture) plant(t *testing.T, p core.ScopePolicy) {
	t.Helper()
	if p.ID == "" {
		p.ID = "pol-" + p.Selector.Key() + "-" + string(p.Effect)
	}
	require.NoError(t, f.st.Policies().Save(context.Background(), &p))
}

func defaultPolicy(effect core.PolicyEffect, scopes ...string) core.ScopePolicy {
	return core.ScopePolicy{
		Selector: core.Selector{Kind: core.SelectorDefault},
		Effect:   effect,
		Rule:     core.RuleEq,
		Scopes:   scopes,
	}
}

func accountPolicy(ref string, effect core.PolicyEffect, scopes ...string) core.ScopePolicy {
	return core.ScopePolicy{
		Selector: core.Selector{Kind: core.SelectorAccount, Ref: ref},
		Effect:   effect,
		Rule:     core.RuleEq,
		Scopes:   scopes,
	}
}

func groupPolicy(ref string, effect core.PolicyEffect, scopes ...string) core.ScopePolicy {
	return core.ScopePolicy{
		Selector: core.Selector{Kind: core.SelectorGroup, Ref: ref},
		Effect:   effect,
		Rule:     core.RuleEq,
		Scopes:   scopes,
	}
}

func TestEvaluate_DefaultDeny(t *testing.T) {
	f := newFixture(t)
	// No policy mentions scope "t".
	d, err := f.pdp.Evaluate(context.Background(), "a1", []string{"t"})
	require.NoError(t, err)
	assert.Empty(t, d.Granted)
	assert.Equal(t, []string{"t"}, d.Denied)
}

func TestEvaluate_AccountDenyBeatsDefaultPermit(t *testing.T) {
	f := newFixture(t)
	f.plant(t, accountPolicy("a1", core.EffectDeny, "s"))
	f.plant(t, defaultPolicy(core.EffectPermit, "s"))

	d, err := f.pdp.Evaluate(context.Background(), "a1", []string{"s"})
	require.NoError(t, err)
	assert.Empty(t, d.Granted)
	assert.Equal(t, []string{"s"}, d.Denied)
}

func TestEvaluate_AccountPermitBeatsGroupAndDefaultDeny(t *testing.T) {
	f := newFixture(t)
	f.st.AddMembership("a1", core.Group{ID: "g1", Name: "analysis"})
	f.plant(t, accountPolicy("a1", core.EffectPermit, "storage.read"))
	f.plant(t, groupPolicy("g1", core.EffectDeny, "storage.read"))
	f.plant(t, defaultPolicy(core.EffectDeny))

	d, err := f.pdp.Evaluate(context.Background(), "a1", []string{"storage.read"})
	require.NoError(t, err)
	assert.Equal(t, []string{"storage.read"}, d.Granted)
}

func TestEvaluate_DenyOverridesWithinLevel(t *testing.T) {
	f := newFixture(t)
	f.plant(t, accountPolicy("a1", core.EffectPermit, "s"))
	deny := accountPolicy("a1", core.EffectDeny, "s")
	deny.Description = "tie breaker"
	f.plant(t, deny)

	d, err := f.pdp.Evaluate(context.Background(), "a1", []string{"s"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, d.Denied)

	// Same outcome with the opposite ordering: permit after deny must not
	// resurrect the scope.
	f2 := newFixture(t)
	f2.plant(t, accountPolicy("a1", core.EffectDeny, "s"))
	permit := accountPolicy("a1", core.EffectPermit, "s")
	permit.Description = "tie breaker"
	f2.plant(t, permit)

	d2, err := f2.pdp.Evaluate(context.Background(), "a1", []string{"s"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, d2.Denied)
}

func TestEvaluate_GroupLevelAppliesToUnprocessedOnly(t *testing.T) {
	f := newFixture(t)
	f.st.AddMembership("a1", core.Group{ID: "g1", Name: "cms"})
	f.plant(t, accountPolicy("a1", core.EffectPermit, "alpha"))
	f.plant(t, groupPolicy("g1", core.EffectDeny, "alpha", "beta"))
	f.plant(t, defaultPolicy(core.EffectPermit, "gamma"))

	d, err := f.pdp.Evaluate(context.Background(), "a1", []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	// alpha was decided at account level; the group DENY cannot touch it.
	assert.Equal(t, []string{"alpha", "gamma"}, d.Granted)
	assert.Equal(t, []string{"beta"}, d.Denied)
}

func TestEvaluate_BlanketPolicyAppliesToEveryScope(t *testing.T) {
	f := newFixture(t)
	// An empty scope set means the policy covers all scopes.
	f.plant(t, defaultPolicy(core.EffectPermit))

	d, err := f.pdp.Evaluate(context.Background(), "a1", []string{"openid", "profile"})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "profile"}, d.Granted)
}

func TestEvaluate_RegexpRule(t *testing.T) {
	f := newFixture(t)
	pol := accountPolicy("a1", core.EffectPermit)
	pol.Rule = core.RuleRegexp
	pol.Scopes = []string{"^storage\\.(read|write):/"}
	f.plant(t, pol)

	d, err := f.pdp.Evaluate(context.Background(), "a1",
		[]string{"storage.read:/home/alice", "storage.write:/home/alice", "storage.admin:/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"storage.read:/home/alice", "storage.write:/home/alice"}, d.Granted)
	assert.Equal(t, []string{"storage.admin:/"}, d.Denied)
}

func TestEvaluate_BadRegexpSurfaces(t *testing.T) {
	f := newFixture(t)
	pol := accountPolicy("a1", core.EffectPermit)
	pol.Rule = core.RuleRegexp
	pol.Scopes = []string{"("}
	f.plant(t, pol)

	_, err := f.pdp.Evaluate(context.Background(), "a1", []string{"s"})
	require.Error(t, err)
}

func TestFilterScopes(t *testing.T) {
	f := newFixture(t)
	f.plant(t, defaultPolicy(core.EffectPermit, "openid", "profile"))

	got, err := f.pdp.FilterScopes(context.Background(), "a1", []string{"openid", "email"})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, got)
}

func TestEvaluateDefault_IgnoresAccountPolicies(t *testing.T) {
	f := newFixture(t)
	f.plant(t, accountPolicy("a1", core.EffectPermit, "secret"))
	f.plant(t, defaultPolicy(core.EffectPermit, "openid"))

	d, err := f.pdp.EvaluateDefault(context.Background(), []string{"openid", "secret"})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, d.Granted)
	assert.Equal(t, []string{"secret"}, d.Denied)
}
