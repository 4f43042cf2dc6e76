package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/indigo-iam/iam-service/internal/introspect"
	"github.com/indigo-iam/iam-service/internal/store/core"
	"github.com/indigo-iam/iam-service/internal/tokens"
)

type tokenHandler struct {
	svc        *tokens.Service
	introspect *introspect.Service
}

// list supports ?client_id= and ?account_id= filters plus SCIM-style
// 1-based startIndex/count paging.
func (h *tokenHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := core.NewTokenFilter(q.Get("client_id"), q.Get("account_id"))

	page := core.Page{StartIndex: 1, Count: 20}
	if v := q.Get("startIndex"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "invalid_request", "startIndex must be a positive integer")
			return
		}
		page.StartIndex = n
	}
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "invalid_request", "count must be a non-negative integer")
			return
		}
		page.Count = n
	}

	res, err := h.svc.List(r.Context(), f, page)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if res.Resources == nil {
		res.Resources = []core.Token{}
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h *tokenHandler) revoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Revoke(r.Context(), id); err != nil {
		WriteDomainError(w, err)
		return
	}
	CountRevocations(1)
	if h.introspect != nil {
		h.introspect.Invalidate(r.Context(), id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// revokeByFilter deletes every token the filter matches. At least one
// predicate is required; an unfiltered mass revocation must be deliberate.
func (h *tokenHandler) revokeByFilter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := core.NewTokenFilter(q.Get("client_id"), q.Get("account_id"))
	_, hasClient := f.ClientID()
	_, hasAccount := f.AccountID()
	if !hasClient && !hasAccount && q.Get("all") != "true" {
		WriteError(w, http.StatusBadRequest, "invalid_request",
			"provide client_id and/or account_id, or all=true to revoke everything")
		return
	}

	n, err := h.svc.RevokeAllMatching(r.Context(), f)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	CountRevocations(n)
	WriteJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}

type issueRequest struct {
	AccountID string   `json:"account_id"`
	ClientID  string   `json:"client_id"`
	Scopes    []string `json:"scopes"`
}

func (h *tokenHandler) issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.AccountID == "" || req.ClientID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "account_id and client_id are required")
		return
	}

	t, raw, err := h.svc.Issue(r.Context(), req.AccountID, req.ClientID, req.Scopes)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"token":        t,
		"access_token": raw,
	})
}
