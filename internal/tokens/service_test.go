package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/indigo-iam/iam-service/internal/audit"
	"github.com/indigo-iam/iam-service/internal/authz/policy"
	"github.com/indigo-iam/iam-service/internal/jwt"
	"github.com/indigo-iam/iam-service/internal/store/adapters/mem"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

type fixture struct {
	store *mem.Store
	svc   *Service
	sink  *audit.ChanSink
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := mem.New()
	iss, err := jwt.NewIssuer("https://iam.test", time.Hour)
	require.NoError(t, err)

	f := &fixture{
		store: st,
		sink:  audit.NewChanSink(16),
		// frozen for determinism, but anchored to the wall clock so signed
		// tokens verify with real exp validation
		now:   time.Now().UTC().Truncate(time.Second),
	}
	pdp := policy.NewPDP(st.Policies(), st.Accounts())
	f.svc = NewService(st.Tokens(), st.Clients(), pdp, iss, f.sink)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) seedToken(t *testing.T, id, accountID, clientID string, ttl time.Duration) {
	t.Helper()
	tok := core.Token{
		ID:        id,
		AccountID: accountID,
		ClientID:  clientID,
		Scopes:    []string{"openid"},
		IssuedAt:  f.now,
		ExpiresAt: f.now.Add(ttl),
	}
	require.NoError(t, f.store.Tokens().Save(context.Background(), &tok))
}

func TestList_FilterCombinations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedToken(t, "t1", "alice", "cli-a", time.Hour)
	f.seedToken(t, "t2", "alice", "cli-b", time.Hour)
	f.seedToken(t, "t3", "bob", "cli-a", time.Hour)

	cases := []struct {
		name   string
		filter core.TokenFilter
		ids    []string
	}{
		{"unfiltered", core.NewTokenFilter("", ""), []string{"t1", "t2", "t3"}},
		{"by client", core.NewTokenFilter("cli-a", ""), []string{"t1", "t3"}},
		{"by account", core.NewTokenFilter("", "alice"), []string{"t1", "t2"}},
		{"by both", core.NewTokenFilter("cli-a", "alice"), []string{"t1"}},
		{"no match", core.NewTokenFilter("cli-a", "carol"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.svc.List(ctx, tc.filter, core.Page{StartIndex: 1, Count: 10})
			require.NoError(t, err)
			require.EqualValues(t, len(tc.ids), res.TotalResults)
			var got []string
			for _, tok := range res.Resources {
				got = append(got, tok.ID)
			}
			require.Equal(t, tc.ids, got)
		})
	}
}

func TestList_ExcludesExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedToken(t, "live", "alice", "cli-a", time.Hour)
	f.seedToken(t, "dead", "alice", "cli-a", -time.Minute)

	res, err := f.svc.List(ctx, core.NewTokenFilter("", "alice"), core.Page{StartIndex: 1, Count: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.TotalResults)
	require.Len(t, res.Resources, 1)
	require.Equal(t, "live", res.Resources[0].ID)
}

func TestList_ZeroCountReturnsOnlyTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedToken(t, "t1", "alice", "cli-a", time.Hour)
	f.seedToken(t, "t2", "alice", "cli-a", time.Hour)

	res, err := f.svc.List(ctx, core.NewTokenFilter("", ""), core.Page{StartIndex: 1, Count: 0})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.TotalResults)
	require.Empty(t, res.Resources)
	require.Zero(t, res.ItemsPerPage)
}

func TestList_Paging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		f.seedToken(t, id, "alice", "cli-a", time.Hour)
	}

	res, err := f.svc.List(ctx, core.NewTokenFilter("", ""), core.Page{StartIndex: 3, Count: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, res.TotalResults)
	require.Equal(t, 3, res.StartIndex)
	require.Equal(t, 2, res.ItemsPerPage)
	require.Equal(t, "t3", res.Resources[0].ID)
	require.Equal(t, "t4", res.Resources[1].ID)
}

func TestRevoke_UnknownID(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Revoke(context.Background(), "missing")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRevoke_RemovesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedToken(t, "t1", "alice", "cli-a", time.Hour)

	require.NoError(t, f.svc.Revoke(ctx, "t1"))
	_, err := f.store.Tokens().FindByID(ctx, "t1")
	require.ErrorIs(t, err, core.ErrNotFound)

	// revoking again is not found, same as an unknown id
	require.ErrorIs(t, f.svc.Revoke(ctx, "t1"), core.ErrNotFound)

	ev := <-f.sink.C
	require.Equal(t, audit.CategoryToken, ev.Category)
	require.Equal(t, "alice", ev.AccountRef)
}

func TestRevokeAllMatching_Filtered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedToken(t, "t1", "alice", "cli-a", time.Hour)
	f.seedToken(t, "t2", "alice", "cli-b", time.Hour)
	f.seedToken(t, "t3", "bob", "cli-a", time.Hour)

	n, err := f.svc.RevokeAllMatching(ctx, core.NewTokenFilter("cli-a", ""))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	res, err := f.svc.List(ctx, core.NewTokenFilter("", ""), core.Page{StartIndex: 1, Count: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.TotalResults)
	require.Equal(t, "t2", res.Resources[0].ID)
}

func TestRevokeAllMatching_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedToken(t, "t1", "alice", "cli-a", time.Hour)
	f.seedToken(t, "t2", "alice", "cli-a", time.Hour)
	f.seedToken(t, "t3", "alice", "cli-a", time.Hour)

	boom := errors.New("storage fault")
	f.store.DeleteTokenHook = func(id string) error {
		if id == "t2" {
			return boom
		}
		return nil
	}

	_, err := f.svc.RevokeAllMatching(ctx, core.NewTokenFilter("", "alice"))
	require.ErrorIs(t, err, boom)

	// the failed bulk revocation must not have removed anything
	res, err := f.svc.List(ctx, core.NewTokenFilter("", "alice"), core.Page{StartIndex: 1, Count: 10})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.TotalResults)
}

func TestIssue_FiltersScopesAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Accounts().Create(ctx, &core.Account{ID: "alice", Username: "alice"}))
	require.NoError(t, f.store.Policies().Save(ctx, &core.ScopePolicy{
		ID:       "pol-1",
		Selector: core.Selector{Kind: core.SelectorDefault},
		Effect:   core.EffectPermit,
		Rule:     core.RuleEq,
		Scopes:   []string{"openid", "profile"},
	}))
	require.NoError(t, f.store.Clients().Create(ctx, &core.Client{ID: "c1", ClientID: "cli-a"}))

	tok, raw, err := f.svc.Issue(ctx, "alice", "cli-a", []string{"openid", "profile", "admin"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"openid", "profile"}, tok.Scopes)
	require.NotEmpty(t, raw)

	stored, err := f.store.Tokens().FindByID(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", stored.AccountID)
	require.Equal(t, "cli-a", stored.ClientID)

	claims, err := jwt.ParseEdDSA(raw, f.svc.issuer)
	require.NoError(t, err)
	require.Equal(t, "alice", claims["sub"])
	require.Equal(t, tok.ID, claims["jti"])
}

func TestIssue_BumpsClientLastUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Accounts().Create(ctx, &core.Account{ID: "alice", Username: "alice"}))
	require.NoError(t, f.store.Clients().Create(ctx, &core.Client{ID: "c1", ClientID: "cli-a"}))

	_, _, err := f.svc.Issue(ctx, "alice", "cli-a", nil)
	require.NoError(t, err)

	c, err := f.store.Clients().FindByClientID(ctx, "cli-a")
	require.NoError(t, err)
	require.NotNil(t, c.LastUsed)
	first := *c.LastUsed

	// another issuance on the same day leaves the date untouched
	_, _, err = f.svc.Issue(ctx, "alice", "cli-a", nil)
	require.NoError(t, err)
	c, err = f.store.Clients().FindByClientID(ctx, "cli-a")
	require.NoError(t, err)
	require.Equal(t, first, *c.LastUsed)
}

func TestMarkUsed_UnknownClientLogsOnly(t *testing.T) {
	f := newFixture(t)
	// must not panic or surface the store error
	f.svc.MarkUsed(context.Background(), "no-such-client")
}
