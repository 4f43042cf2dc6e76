package http

import (
	"encoding/json"
	"net/http"

	"github.com/indigo-iam/iam-service/internal/scim"
)

type scimHandler struct {
	exec *scim.Executor
}

// bulk processes a SCIM bulk request. The whole request is rejected before
// any operation runs when it exceeds the operation budget.
func (h *scimHandler) bulk(w http.ResponseWriter, r *http.Request) {
	var req scim.BulkRequest
	if !ReadJSON(w, r, &req) {
		return
	}

	res, err := h.exec.Execute(r.Context(), req)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/scim+json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(res)
}
