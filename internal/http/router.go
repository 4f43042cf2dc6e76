// Package http exposes the service's REST surface: scope policies, tokens,
// accounts, clients, SCIM bulk and token introspection.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/indigo-iam/iam-service/internal/account"
	"github.com/indigo-iam/iam-service/internal/authz/policy"
	"github.com/indigo-iam/iam-service/internal/clients"
	"github.com/indigo-iam/iam-service/internal/introspect"
	"github.com/indigo-iam/iam-service/internal/scim"
	"github.com/indigo-iam/iam-service/internal/store/core"
	"github.com/indigo-iam/iam-service/internal/tokens"
)

// Deps collects the wired services the router serves.
type Deps struct {
	Store      core.Store
	Policies   *policy.Service
	PDP        *policy.PDP
	Tokens     *tokens.Service
	Accounts   *account.Service
	Clients    *clients.Service
	SCIM       *scim.Executor
	Introspect *introspect.Service

	AdminAPIKey        string
	CORSAllowedOrigins []string
	Metrics            http.Handler
}

// NewRouter builds the full route tree. The admin surface (policies, token
// revocation, accounts, clients, SCIM) sits behind the admin API key.
func NewRouter(d Deps) http.Handler {
	pol := &policyHandler{svc: d.Policies, pdp: d.PDP}
	tok := &tokenHandler{svc: d.Tokens, introspect: d.Introspect}
	acc := &accountHandler{svc: d.Accounts}
	cli := &clientHandler{svc: d.Clients}
	blk := &scimHandler{exec: d.SCIM}
	hlt := &healthHandler{store: d.Store}
	itr := &introspectHandler{svc: d.Introspect}

	r := chi.NewRouter()

	r.Get("/healthz", hlt.live)
	r.Get("/readyz", hlt.ready)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Post("/oauth2/introspect", itr.introspect)

	r.Route("/iam/api", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return WithAdminKey(next, d.AdminAPIKey)
		})

		r.Route("/scope_policies", func(r chi.Router) {
			r.Get("/", pol.list)
			r.Post("/", pol.create)
			r.Post("/evaluate", pol.evaluate)
			r.Get("/{id}", pol.get)
			r.Delete("/{id}", pol.remove)
		})

		r.Route("/tokens", func(r chi.Router) {
			r.Get("/", tok.list)
			r.Post("/", tok.issue)
			r.Delete("/", tok.revokeByFilter)
			r.Delete("/{id}", tok.revoke)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", acc.create)
			r.Get("/{id}", acc.get)
			r.Get("/{id}/ssh_keys", acc.listSSHKeys)
			r.Post("/{id}/ssh_keys", acc.linkSSHKey)
			r.Delete("/{id}/ssh_keys", acc.unlinkSSHKey)
			r.Get("/{id}/certificates", acc.listCertificates)
			r.Post("/{id}/certificates", acc.linkCertificate)
			r.Delete("/{id}/certificates", acc.unlinkCertificate)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Post("/", cli.register)
			r.Get("/{clientID}", cli.get)
			r.Delete("/{clientID}", cli.remove)
		})

		r.Post("/scim/Bulk", blk.bulk)
	})

	var h http.Handler = r
	h = WithMetrics(h, "api")
	h = WithLogging(h)
	h = WithSecurityHeaders(h)
	h = WithCORS(h, d.CORSAllowedOrigins)
	h = WithRecover(h)
	h = WithRequestID(h)
	return h
}
