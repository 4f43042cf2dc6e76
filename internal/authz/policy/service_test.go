package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indigo-iam/iam-service/internal/audit"
	"github.com/indigo-iam/iam-service/internal/store/adapters/mem"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

func permitAccount(ref string, scopes ...string) core.ScopePolicy {
	return core.ScopePolicy{
		Selector: core.Selector{Kind: core.SelectorAccount, Ref: ref},
		Effect:   core.EffectPermit,
		Rule:     core.RuleEq,
		Scopes:   scopes,
	}
}

func TestAdd_StoresPolicy(t *testing.T) {
	st := mem.New()
	events := audit.NewChanSink(4)
	svc := NewService(st.Policies(), events)

	p, err := svc.Add(context.Background(), permitAccount("a1", "openid", "profile"))
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "profile"}, got.Scopes)

	select {
	case e := <-events.C:
		assert.Equal(t, audit.CategoryPolicy, e.Category)
		assert.Equal(t, "a1", e.AccountRef)
	default:
		t.Fatal("expected a policy audit event")
	}
}

func TestAdd_RejectsEquivalent(t *testing.T) {
	st := mem.New()
	svc := NewService(st.Policies(), nil)
	ctx := context.Background()

	first := permitAccount("a1", "openid", "profile")
	first.ID = "p-1"
	require.NoError(t, st.Policies().Save(ctx, &first))

	candidate := permitAccount("a1", "profile", "openid")
	_, err := svc.Add(ctx, candidate)
	var dup *DuplicatePolicyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, []string{"p-1"}, dup.IDs)
	assert.Contains(t, dup.Error(), "p-1")
}

func TestEquivalentIDs_EnumeratesAllConflictsInStoreOrder(t *testing.T) {
	// A store predating the fingerprint constraint may hold several
	// equivalent policies; the error must name every one of them.
	candidate := permitAccount("a1", "openid", "profile")
	existing := []core.ScopePolicy{
		{ID: "p-1", Selector: candidate.Selector, Effect: candidate.Effect, Rule: candidate.Rule, Scopes: []string{"profile", "openid"}},
		{ID: "p-other", Selector: candidate.Selector, Effect: core.EffectDeny, Rule: candidate.Rule, Scopes: candidate.Scopes},
		{ID: "p-2", Selector: candidate.Selector, Effect: candidate.Effect, Rule: candidate.Rule, Scopes: []string{"openid", "profile", "openid"}},
	}
	assert.Equal(t, []string{"p-1", "p-2"}, equivalentIDs(candidate, existing))
}

func TestAdd_DuplicateErrorListsIDsCommaJoined(t *testing.T) {
	err := &DuplicatePolicyError{IDs: []string{"p-1", "p-2", "p-3"}}
	assert.Equal(t,
		"duplicate scope policy: policy matches existing policies: p-1,p-2,p-3",
		err.Error())
}

func TestAdd_OrderInsensitiveScopeComparison(t *testing.T) {
	st := mem.New()
	svc := NewService(st.Policies(), nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, permitAccount("a1", "alpha", "beta"))
	require.NoError(t, err)

	_, err = svc.Add(ctx, permitAccount("a1", "beta", "alpha"))
	var dup *DuplicatePolicyError
	require.ErrorAs(t, err, &dup)
}

func TestAdd_DifferentEffectIsNotEquivalent(t *testing.T) {
	st := mem.New()
	svc := NewService(st.Policies(), nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, permitAccount("a1", "openid"))
	require.NoError(t, err)

	deny := permitAccount("a1", "openid")
	deny.Effect = core.EffectDeny
	_, err = svc.Add(ctx, deny)
	require.NoError(t, err)
}

func TestAdd_ValidationFailures(t *testing.T) {
	svc := NewService(mem.New().Policies(), nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*core.ScopePolicy)
		reason string
	}{
		{"account without ref", func(p *core.ScopePolicy) { p.Selector.Ref = "" }, "selector_ref_missing"},
		{"default with ref", func(p *core.ScopePolicy) {
			p.Selector = core.Selector{Kind: core.SelectorDefault, Ref: "x"}
		}, "selector_ref_forbidden"},
		{"bad effect", func(p *core.ScopePolicy) { p.Effect = "MAYBE" }, "effect_invalid"},
		{"bad scope name", func(p *core.ScopePolicy) { p.Scopes = []string{"NOT A SCOPE"} }, "invalid_scope"},
		{"bad rule", func(p *core.ScopePolicy) { p.Rule = "GLOB" }, "rule_invalid"},
		{"bad regexp", func(p *core.ScopePolicy) {
			p.Rule = core.RuleRegexp
			p.Scopes = []string{"("}
		}, "invalid_scope_pattern"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := permitAccount("a1", "openid")
			tc.mutate(&p)
			_, err := svc.Add(ctx, p)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.reason, verr.Result.ReasonCode)
		})
	}
}

func TestRemove_NotFound(t *testing.T) {
	svc := NewService(mem.New().Policies(), nil)
	err := svc.Remove(context.Background(), "missing")
	require.True(t, errors.Is(err, core.ErrNotFound))
}

func TestRemove_DeletesAndAudits(t *testing.T) {
	st := mem.New()
	events := audit.NewChanSink(4)
	svc := NewService(st.Policies(), events)
	ctx := context.Background()

	p, err := svc.Add(ctx, permitAccount("a1", "openid"))
	require.NoError(t, err)
	<-events.C // creation event

	require.NoError(t, svc.Remove(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	require.True(t, errors.Is(err, core.ErrNotFound))

	e := <-events.C
	pc, ok := e.Payload.(audit.PolicyChange)
	require.True(t, ok)
	assert.Equal(t, "deleted", pc.Action)
}

func TestAdd_ConcurrentEquivalent_OnlyOneWins(t *testing.T) {
	st := mem.New()
	svc := NewService(st.Policies(), nil)
	ctx := context.Background()

	const attempts = 16
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := svc.Add(ctx, permitAccount("a1", "openid"))
			errs <- err
		}()
	}

	var ok, dup int
	for i := 0; i < attempts; i++ {
		err := <-errs
		if err == nil {
			ok++
			continue
		}
		var d *DuplicatePolicyError
		require.ErrorAs(t, err, &d)
		dup++
	}
	assert.Equal(t, 1, ok, "exactly one concurrent add must succeed")
	assert.Equal(t, attempts-1, dup)
}
