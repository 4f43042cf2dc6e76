package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/indigo-iam/iam-service/internal/account"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

type accountHandler struct {
	svc *account.Service
}

type createAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *accountHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	a, err := h.svc.Create(r.Context(), req.Username, req.Email)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, a)
}

func (h *accountHandler) get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, a)
}

type linkSSHKeyRequest struct {
	Fingerprint string `json:"fingerprint"`
	Label       string `json:"label"`
	Value       string `json:"value"`
}

func (h *accountHandler) linkSSHKey(w http.ResponseWriter, r *http.Request) {
	var req linkSSHKeyRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	err := h.svc.LinkSSHKey(r.Context(), chi.URLParam(r, "id"), core.SSHKey{
		Fingerprint: req.Fingerprint,
		Label:       req.Label,
		Value:       req.Value,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *accountHandler) unlinkSSHKey(w http.ResponseWriter, r *http.Request) {
	err := h.svc.UnlinkSSHKey(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("fingerprint"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *accountHandler) listSSHKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.SSHKeys(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if keys == nil {
		keys = []core.SSHKey{}
	}
	WriteJSON(w, http.StatusOK, keys)
}

type linkCertificateRequest struct {
	SubjectDN string `json:"subject_dn"`
	IssuerDN  string `json:"issuer_dn"`
	PEM       string `json:"pem"`
}

func (h *accountHandler) linkCertificate(w http.ResponseWriter, r *http.Request) {
	var req linkCertificateRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	err := h.svc.LinkCertificate(r.Context(), chi.URLParam(r, "id"), core.X509Certificate{
		SubjectDN: req.SubjectDN,
		IssuerDN:  req.IssuerDN,
		PEM:       req.PEM,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *accountHandler) unlinkCertificate(w http.ResponseWriter, r *http.Request) {
	err := h.svc.UnlinkCertificate(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("subject_dn"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *accountHandler) listCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := h.svc.Certificates(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if certs == nil {
		certs = []core.X509Certificate{}
	}
	WriteJSON(w, http.StatusOK, certs)
}
