package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/indigo-iam/iam-service/internal/clients"
)

type clientHandler struct {
	svc *clients.Service
}

type registerClientRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

type registerClientResponse struct {
	ClientID string   `json:"client_id"`
	Secret   string   `json:"client_secret"`
	Name     string   `json:"name"`
	Scopes   []string `json:"scopes"`
}

func (h *clientHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerClientRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	reg, err := h.svc.Register(r.Context(), req.Name, req.Scopes)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, registerClientResponse{
		ClientID: reg.Client.ClientID,
		Secret:   reg.Secret,
		Name:     reg.Client.Name,
		Scopes:   reg.Client.Scopes,
	})
}

func (h *clientHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (h *clientHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Remove(r.Context(), chi.URLParam(r, "clientID")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
