package scim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/indigo-iam/iam-service/internal/audit"
	"github.com/indigo-iam/iam-service/internal/observability/logger"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

// Executor runs bulk requests against the account store. The size gate runs
// before anything else; past the gate, operations execute in order and a
// failing operation is recorded in the response without aborting the batch,
// matching SCIM bulk semantics.
type Executor struct {
	accounts core.AccountRepository
	events   audit.Sink
	maxOps   int
}

func NewExecutor(accounts core.AccountRepository, events audit.Sink, maxOps int) *Executor {
	if maxOps <= 0 {
		maxOps = DefaultMaxOperations
	}
	return &Executor{accounts: accounts, events: events, maxOps: maxOps}
}

// MaxOperations returns the configured cardinality limit.
func (e *Executor) MaxOperations() int {
	return e.maxOps
}

// Execute validates and runs a bulk request. On a gate failure the returned
// error is a *BulkPayloadSizeError and no operation has been executed.
func (e *Executor) Execute(ctx context.Context, req BulkRequest) (BulkResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("scim.bulk"),
		logger.Op("Execute"),
		logger.Count(len(req.Operations)),
	)

	if err := ValidateBulk(req.Operations, e.maxOps); err != nil {
		log.Warn("bulk request rejected", logger.Err(err))
		audit.Publish(ctx, e.events, audit.Event{
			Category: audit.CategoryBulk,
			Message:  "bulk request rejected by size gate",
			Payload:  audit.BulkRejection{Size: len(req.Operations), Max: e.maxOps},
		})
		return BulkResponse{}, err
	}

	resp := BulkResponse{Schemas: []string{SchemaBulkResponse}}
	for _, op := range req.Operations {
		resp.Operations = append(resp.Operations, e.runOperation(ctx, op))
	}

	log.Info("bulk request executed")
	return resp, nil
}

func (e *Executor) runOperation(ctx context.Context, op BulkOperation) BulkOperationResult {
	res := BulkOperationResult{Method: op.Method, BulkID: op.BulkID}

	switch strings.ToUpper(op.Method) {
	case "POST":
		var u User
		if err := json.Unmarshal(op.Data, &u); err != nil || u.UserName == "" {
			res.Status = "400"
			res.Detail = "malformed user payload"
			return res
		}
		a := core.Account{
			ID:        uuid.NewString(),
			Username:  u.UserName,
			Email:     u.Email,
			Active:    u.Active == nil || *u.Active,
			CreatedAt: time.Now().UTC(),
		}
		if err := e.accounts.Create(ctx, &a); err != nil {
			if errors.Is(err, core.ErrConflict) {
				res.Status = "409"
				res.Detail = fmt.Sprintf("user %q already exists", u.UserName)
			} else {
				res.Status = "500"
				res.Detail = "store failure"
			}
			return res
		}
		res.Status = "201"
		res.Location = "/scim/Users/" + a.ID
		audit.Publish(ctx, e.events, audit.Event{
			Category:   audit.CategoryAccount,
			AccountRef: a.ID,
			Message:    "account provisioned via bulk",
		})

	case "PATCH":
		id := pathTail(op.Path)
		if id == "" {
			res.Status = "400"
			res.Detail = "missing user id in path"
			return res
		}
		if err := e.patchAccount(ctx, id, op.Data); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				res.Status = "404"
				res.Detail = fmt.Sprintf("user %q not found", id)
			} else {
				res.Status = "400"
				res.Detail = err.Error()
			}
			return res
		}
		res.Status = "200"
		res.Location = op.Path

	case "DELETE":
		id := pathTail(op.Path)
		if id == "" {
			res.Status = "400"
			res.Detail = "missing user id in path"
			return res
		}
		if err := e.accounts.Delete(ctx, id); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				res.Status = "404"
				res.Detail = fmt.Sprintf("user %q not found", id)
			} else {
				res.Status = "500"
				res.Detail = "store failure"
			}
			return res
		}
		res.Status = "204"
		audit.Publish(ctx, e.events, audit.Event{
			Category:   audit.CategoryAccount,
			AccountRef: id,
			Message:    "account deleted via bulk",
		})

	default:
		res.Status = "400"
		res.Detail = fmt.Sprintf("unsupported bulk method %q", op.Method)
	}
	return res
}

// patchAccount applies the supported replace operations to an account.
func (e *Executor) patchAccount(ctx context.Context, id string, data json.RawMessage) error {
	var patch Patch
	if err := json.Unmarshal(data, &patch); err != nil {
		return fmt.Errorf("malformed patch payload")
	}
	a, err := e.accounts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	for _, op := range patch.Operations {
		if !strings.EqualFold(op.Op, "replace") {
			return fmt.Errorf("unsupported patch op %q", op.Op)
		}
		switch strings.ToLower(op.Path) {
		case "active":
			var v bool
			if err := json.Unmarshal(op.Value, &v); err != nil {
				return fmt.Errorf("attribute %q expects a boolean", op.Path)
			}
			a.Active = v
		case "email":
			var v string
			if err := json.Unmarshal(op.Value, &v); err != nil {
				return fmt.Errorf("attribute %q expects a string", op.Path)
			}
			a.Email = v
		default:
			return fmt.Errorf("unsupported patch path %q", op.Path)
		}
	}
	return e.accounts.Update(ctx, a)
}

func pathTail(p string) string {
	segs := strings.Split(strings.TrimRight(p, "/"), "/")
	return segs[len(segs)-1]
}
