package http

import (
	"net/http"

	"github.com/indigo-iam/iam-service/internal/store/core"
)

type healthHandler struct {
	store core.Store
}

func (h *healthHandler) live(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *healthHandler) ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "store ping failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
