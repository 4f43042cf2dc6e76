// Package scim implements the SCIM bulk provisioning surface: the request
// model, the payload-size gate and the in-order executor.
package scim

import "encoding/json"

const (
	// SchemaBulkRequest is the SCIM 2.0 BulkRequest schema URN.
	SchemaBulkRequest = "urn:ietf:params:scim:api:messages:2.0:BulkRequest"
	// SchemaBulkResponse is the SCIM 2.0 BulkResponse schema URN.
	SchemaBulkResponse = "urn:ietf:params:scim:api:messages:2.0:BulkResponse"

	// DefaultMaxOperations is the default cardinality limit for one bulk
	// request.
	DefaultMaxOperations = 50
)

// BulkOperation is one entry of a bulk request. Data carries the
// method-specific body (a SCIM user for POST, a patch for PATCH).
type BulkOperation struct {
	Method string          `json:"method"`
	Path   string          `json:"path,omitempty"`
	BulkID string          `json:"bulkId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// BulkRequest is an ordered sequence of operations submitted as one request.
type BulkRequest struct {
	Schemas    []string        `json:"schemas"`
	Operations []BulkOperation `json:"Operations"`
}

// BulkOperationResult is the per-operation outcome in a bulk response.
type BulkOperationResult struct {
	Method   string `json:"method"`
	Location string `json:"location,omitempty"`
	BulkID   string `json:"bulkId,omitempty"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// BulkResponse aggregates the per-operation results.
type BulkResponse struct {
	Schemas    []string              `json:"schemas"`
	Operations []BulkOperationResult `json:"Operations"`
}

// User is the minimal SCIM user resource the bulk executor understands.
type User struct {
	UserName string `json:"userName"`
	Email    string `json:"email,omitempty"`
	Active   *bool  `json:"active,omitempty"`
}

// Patch is the minimal SCIM patch body: a list of replace operations over the
// supported user attributes.
type Patch struct {
	Operations []PatchOperation `json:"Operations"`
}

type PatchOperation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}
