package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/indigo-iam/iam-service/internal/authz/policy"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

type policyHandler struct {
	svc *policy.Service
	pdp *policy.PDP
}

type policyRequest struct {
	Description  string   `json:"description"`
	SelectorKind string   `json:"selector_kind"`
	SelectorRef  string   `json:"selector_ref"`
	Effect       string   `json:"effect"`
	Rule         string   `json:"rule"`
	Scopes       []string `json:"scopes"`
}

func (h *policyHandler) create(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if !ReadJSON(w, r, &req) {
		return
	}

	p := core.ScopePolicy{
		Description: req.Description,
		Selector: core.Selector{
			Kind: core.SelectorKind(req.SelectorKind),
			Ref:  req.SelectorRef,
		},
		Effect: core.PolicyEffect(req.Effect),
		Rule:   core.MatchingRule(req.Rule),
		Scopes: req.Scopes,
	}
	created, err := h.svc.Add(r.Context(), p)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

func (h *policyHandler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if out == nil {
		out = []core.ScopePolicy{}
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *policyHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (h *policyHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type evaluateRequest struct {
	AccountID string   `json:"account_id"`
	Scopes    []string `json:"scopes"`
}

// evaluate runs the PDP for an account and a scope set, returning the
// granted and denied partitions.
func (h *policyHandler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	d, err := h.pdp.Evaluate(r.Context(), req.AccountID, req.Scopes)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	for range d.Granted {
		CountDecision("PERMIT")
	}
	for range d.Denied {
		CountDecision("DENY")
	}
	WriteJSON(w, http.StatusOK, d)
}
