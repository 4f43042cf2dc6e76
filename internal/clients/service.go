// Package clients manages the OAuth client registry. Registration filters the
// requested scopes through the default scope policies, so a client can never
// be born with scopes the platform denies by default.
package clients

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/indigo-iam/iam-service/internal/authz/policy"
	"github.com/indigo-iam/iam-service/internal/check"
	"github.com/indigo-iam/iam-service/internal/observability/logger"
	"github.com/indigo-iam/iam-service/internal/security/secrets"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

// Registration is the result of registering a client. Secret is the only
// place the plaintext secret ever appears; the store keeps the hash.
type Registration struct {
	Client core.Client
	Secret string
}

type Service struct {
	clients core.ClientRepository
	pdp     *policy.PDP
	nameOK  check.Check[string]
}

func NewService(clients core.ClientRepository, pdp *policy.PDP) *Service {
	return &Service{
		clients: clients,
		pdp:     pdp,
		nameOK:  check.NonEmpty("invalid_client_name", "client name must not be empty"),
	}
}

// Register creates a client with a generated client_id and secret. Requested
// scopes that the default policies do not permit are dropped.
func (s *Service) Register(ctx context.Context, name string, requestedScopes []string) (Registration, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("clients"),
		logger.Op("Register"),
	)

	if r := s.nameOK.Validate(name); !r.OK() {
		return Registration{}, &ValidationError{Result: r}
	}

	d, err := s.pdp.EvaluateDefault(ctx, requestedScopes)
	if err != nil {
		return Registration{}, err
	}

	secret, err := secrets.NewSecret(32)
	if err != nil {
		return Registration{}, err
	}
	hash, err := secrets.Hash(secrets.Default, secret)
	if err != nil {
		return Registration{}, err
	}

	c := core.Client{
		ID:         uuid.NewString(),
		ClientID:   uuid.NewString(),
		Name:       name,
		SecretHash: hash,
		Scopes:     d.Granted,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.clients.Create(ctx, &c); err != nil {
		return Registration{}, err
	}

	log.Info("client registered",
		logger.ClientID(c.ClientID),
		logger.Scopes(c.Scopes),
	)
	return Registration{Client: c, Secret: secret}, nil
}

// Authenticate verifies a client_id/secret pair. Unknown id and wrong secret
// are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, clientID, secret string) (*core.Client, error) {
	c, err := s.clients.FindByClientID(ctx, clientID)
	if err != nil {
		return nil, core.ErrNotFound
	}
	if !secrets.Verify(secret, c.SecretHash) {
		return nil, core.ErrNotFound
	}
	return c, nil
}

// Get returns a client by its client_id.
func (s *Service) Get(ctx context.Context, clientID string) (*core.Client, error) {
	return s.clients.FindByClientID(ctx, clientID)
}

// Remove deletes a client. Unknown ids surface core.ErrNotFound.
func (s *Service) Remove(ctx context.Context, clientID string) error {
	return s.clients.Delete(ctx, clientID)
}

// ValidationError reports a rejected registration request.
type ValidationError struct {
	Result check.Result
}

func (e *ValidationError) Error() string {
	return "invalid client: " + e.Result.Message
}
