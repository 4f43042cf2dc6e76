package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/indigo-iam/iam-service/internal/account"
	"github.com/indigo-iam/iam-service/internal/audit"
	"github.com/indigo-iam/iam-service/internal/authz/policy"
	"github.com/indigo-iam/iam-service/internal/clients"
	"github.com/indigo-iam/iam-service/internal/introspect"
	"github.com/indigo-iam/iam-service/internal/jwt"
	"github.com/indigo-iam/iam-service/internal/scim"
	"github.com/indigo-iam/iam-service/internal/store/adapters/mem"
	"github.com/indigo-iam/iam-service/internal/store/core"
	"github.com/indigo-iam/iam-service/internal/tokens"
)

const testAdminKey = "test-admin-key"

func newTestRouter(t *testing.T) (http.Handler, *mem.Store) {
	t.Helper()
	st := mem.New()
	sink := audit.LoggerSink{}
	iss, err := jwt.NewIssuer("https://iam.test", time.Hour)
	require.NoError(t, err)

	pdp := policy.NewPDP(st.Policies(), st.Accounts())
	intro := introspect.NewService(st.Tokens(), iss, nil, time.Minute)
	h := NewRouter(Deps{
		Store:       st,
		Policies:    policy.NewService(st.Policies(), sink),
		PDP:         pdp,
		Tokens:      tokens.NewService(st.Tokens(), st.Clients(), pdp, iss, sink),
		Accounts:    account.NewService(st.Accounts(), sink),
		Clients:     clients.NewService(st.Clients(), pdp),
		SCIM:        scim.NewExecutor(st.Accounts(), sink, 50),
		Introspect:  intro,
		AdminAPIKey: testAdminKey,
	})
	return h, st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-API-Key", testAdminKey)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAdminKeyRequired(t *testing.T) {
	h, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/iam/api/scope_policies/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPolicyLifecycle(t *testing.T) {
	h, _ := newTestRouter(t)

	w := doJSON(t, h, http.MethodPost, "/iam/api/scope_policies/", policyRequest{
		SelectorKind: "DEFAULT",
		Effect:       "PERMIT",
		Rule:         "EQ",
		Scopes:       []string{"openid"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created core.ScopePolicy
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	// equivalent policy conflicts and names the existing id
	w = doJSON(t, h, http.MethodPost, "/iam/api/scope_policies/", policyRequest{
		SelectorKind: "DEFAULT",
		Effect:       "PERMIT",
		Rule:         "EQ",
		Scopes:       []string{"openid"},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), created.ID)

	w = doJSON(t, h, http.MethodGet, "/iam/api/scope_policies/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/iam/api/scope_policies/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/iam/api/scope_policies/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPolicyEvaluate(t *testing.T) {
	h, st := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, st.Accounts().Create(ctx, &core.Account{ID: "alice", Username: "alice"}))
	require.NoError(t, st.Policies().Save(ctx, &core.ScopePolicy{
		ID:       "p1",
		Selector: core.Selector{Kind: core.SelectorDefault},
		Effect:   core.EffectPermit,
		Rule:     core.RuleEq,
		Scopes:   []string{"openid"},
	}))

	w := doJSON(t, h, http.MethodPost, "/iam/api/scope_policies/evaluate", evaluateRequest{
		AccountID: "alice",
		Scopes:    []string{"openid", "admin"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var d policy.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	require.Equal(t, []string{"openid"}, d.Granted)
	require.Equal(t, []string{"admin"}, d.Denied)
}

func TestTokenListAndRevoke(t *testing.T) {
	h, st := newTestRouter(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, id := range []string{"t1", "t2", "t3"} {
		acct := "alice"
		if i == 2 {
			acct = "bob"
		}
		require.NoError(t, st.Tokens().Save(ctx, &core.Token{
			ID: id, AccountID: acct, ClientID: "cli-a",
			IssuedAt: now, ExpiresAt: now.Add(time.Hour),
		}))
	}

	w := doJSON(t, h, http.MethodGet, "/iam/api/tokens/?account_id=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res tokens.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.EqualValues(t, 2, res.TotalResults)

	w = doJSON(t, h, http.MethodDelete, "/iam/api/tokens/t1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/iam/api/tokens/t1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// filter-wide revocation needs an explicit predicate
	w = doJSON(t, h, http.MethodDelete, "/iam/api/tokens/", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/iam/api/tokens/?client_id=cli-a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"revoked":2`)
}

func TestSCIMBulk_TooLarge(t *testing.T) {
	h, _ := newTestRouter(t)

	ops := make([]scim.BulkOperation, 51)
	for i := range ops {
		ops[i] = scim.BulkOperation{
			Method: "POST",
			Path:   "/Users",
			BulkID: fmt.Sprintf("op-%d", i),
			Data:   json.RawMessage(`{"userName":"u"}`),
		}
	}
	w := doJSON(t, h, http.MethodPost, "/iam/api/scim/Bulk", scim.BulkRequest{
		Schemas:    []string{scim.SchemaBulkRequest},
		Operations: ops,
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.Contains(t, w.Body.String(), "50")
}

func TestIntrospectEndpoint(t *testing.T) {
	h, st := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, st.Accounts().Create(ctx, &core.Account{ID: "alice", Username: "alice"}))
	require.NoError(t, st.Policies().Save(ctx, &core.ScopePolicy{
		ID:       "p1",
		Selector: core.Selector{Kind: core.SelectorDefault},
		Effect:   core.EffectPermit,
		Rule:     core.RuleEq,
	}))
	require.NoError(t, st.Clients().Create(ctx, &core.Client{ID: "c1", ClientID: "cli-a"}))

	w := doJSON(t, h, http.MethodPost, "/iam/api/tokens/", issueRequest{
		AccountID: "alice",
		ClientID:  "cli-a",
		Scopes:    []string{"openid"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var issued struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))

	// introspection is not behind the admin key
	form := strings.NewReader("token=" + issued.AccessToken)
	req := httptest.NewRequest(http.MethodPost, "/oauth2/introspect", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"active":true`)
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
