package http

import (
	"net/http"

	"github.com/indigo-iam/iam-service/internal/introspect"
)

type introspectHandler struct {
	svc *introspect.Service
}

// introspect implements the RFC 7662 form-encoded endpoint.
func (h *introspectHandler) introspect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	raw := r.PostFormValue("token")
	if raw == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "token parameter is required")
		return
	}

	res, err := h.svc.Introspect(r.Context(), raw)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
