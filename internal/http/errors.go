package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/indigo-iam/iam-service/internal/account"
	"github.com/indigo-iam/iam-service/internal/authz/policy"
	"github.com/indigo-iam/iam-service/internal/clients"
	"github.com/indigo-iam/iam-service/internal/scim"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		RequestID:        rid,
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodes the body, tolerating unknown fields, with a 1MB cap.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") && !strings.Contains(ct, "application/scim+json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid_json", "malformed json body")
		return false
	}
	return true
}

// WriteDomainError maps service errors onto HTTP statuses. Unrecognized
// errors become an opaque 500; their detail stays in the log, not the body.
func WriteDomainError(w http.ResponseWriter, err error) {
	var (
		dup        *policy.DuplicatePolicyError
		polInvalid *policy.ValidationError
		cliInvalid *clients.ValidationError
		accInvalid *account.ValidationError
		bulkSize   *scim.BulkPayloadSizeError
	)
	switch {
	case errors.Is(err, core.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, core.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", "resource already exists")
	case errors.Is(err, core.ErrInvalid):
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &dup):
		WriteError(w, http.StatusConflict, "duplicate_policy", dup.Error())
	case errors.As(err, &polInvalid):
		WriteError(w, http.StatusBadRequest, polInvalid.Result.ReasonCode, polInvalid.Result.Message)
	case errors.As(err, &cliInvalid):
		WriteError(w, http.StatusBadRequest, cliInvalid.Result.ReasonCode, cliInvalid.Result.Message)
	case errors.As(err, &accInvalid):
		WriteError(w, http.StatusBadRequest, accInvalid.Result.ReasonCode, accInvalid.Result.Message)
	case errors.As(err, &bulkSize):
		WriteError(w, http.StatusRequestEntityTooLarge, "too_many_operations", bulkSize.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
