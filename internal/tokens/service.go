// Package tokens implements the token lifecycle and filtering service:
// issuance, filtered paginated listing, targeted and filter-wide revocation,
// and client last-used tracking.
package tokens

import (
	"context"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/indigo-iam/iam-service/internal/audit"
	"github.com/indigo-iam/iam-service/internal/authz/policy"
	"github.com/indigo-iam/iam-service/internal/jwt"
	"github.com/indigo-iam/iam-service/internal/observability/logger"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

// ListResponse is the page envelope for token listings. StartIndex is
// 1-based; TotalResults counts every match, not just the returned page.
type ListResponse struct {
	TotalResults int64        `json:"totalResults"`
	ItemsPerPage int          `json:"itemsPerPage"`
	StartIndex   int          `json:"startIndex"`
	Resources    []core.Token `json:"Resources"`
}

type Service struct {
	tokens  core.TokenRepository
	clients core.ClientRepository
	pdp     *policy.PDP
	issuer  *jwt.Issuer
	events  audit.Sink

	now func() time.Time
}

func NewService(tokens core.TokenRepository, clients core.ClientRepository, pdp *policy.PDP, issuer *jwt.Issuer, events audit.Sink) *Service {
	return &Service{
		tokens:  tokens,
		clients: clients,
		pdp:     pdp,
		issuer:  issuer,
		events:  events,
		now:     time.Now,
	}
}

// List returns the tokens matching the filter, in issuance order. Expired
// tokens are never listed. A count of 0 returns only the total.
func (s *Service) List(ctx context.Context, f core.TokenFilter, page core.Page) (ListResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("tokens"),
		logger.Op("List"),
	)

	now := s.now()
	total, err := s.tokens.CountByFilter(ctx, f, now)
	if err != nil {
		return ListResponse{}, err
	}
	if page.StartIndex < 1 {
		page.StartIndex = 1
	}
	if page.Count == 0 {
		return ListResponse{TotalResults: total, StartIndex: page.StartIndex}, nil
	}

	matched, err := s.tokens.FindByFilter(ctx, f, now, page)
	if err != nil {
		return ListResponse{}, err
	}

	log.Debug("tokens listed", logger.Count(len(matched)), logger.Any("total", total))
	return ListResponse{
		TotalResults: total,
		ItemsPerPage: len(matched),
		StartIndex:   page.StartIndex,
		Resources:    matched,
	}, nil
}

// Revoke deletes one token by id. Returns core.ErrNotFound for an unknown or
// already-revoked id; callers treat that as expected, not exceptional.
func (s *Service) Revoke(ctx context.Context, id string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("tokens"),
		logger.Op("Revoke"),
		logger.TokenID(id),
	)

	t, err := s.tokens.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tokens.DeleteByID(ctx, id); err != nil {
		return err
	}

	log.Info("token revoked", logger.ClientID(t.ClientID))
	audit.Publish(ctx, s.events, audit.Event{
		Category:   audit.CategoryToken,
		AccountRef: t.AccountID,
		Message:    "token revoked",
		Payload:    audit.TokenRevocation{TokenID: id, ClientID: t.ClientID, Count: 1},
	})
	return nil
}

// RevokeAllMatching revokes every token the filter matches, atomically:
// either all matching tokens are gone or none are. Returns the number of
// revoked tokens.
func (s *Service) RevokeAllMatching(ctx context.Context, f core.TokenFilter) (int64, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("tokens"),
		logger.Op("RevokeAllMatching"),
	)

	n, err := s.tokens.DeleteByFilter(ctx, f)
	if err != nil {
		log.Error("filter revocation failed", logger.Err(err))
		return 0, err
	}

	log.Info("tokens revoked by filter", logger.Any("count", n))
	clientID, _ := f.ClientID()
	accountID, _ := f.AccountID()
	audit.Publish(ctx, s.events, audit.Event{
		Category:   audit.CategoryToken,
		AccountRef: accountID,
		Message:    "tokens revoked by filter",
		Payload:    audit.TokenRevocation{ClientID: clientID, Count: n},
	})
	return n, nil
}

// Issue filters the requested scopes through the PDP, persists a token
// record, signs the access JWT and bumps the client's last-used date. Scopes
// the PDP denies are silently dropped from the issued token, matching the
// scope-filtering behavior of the authorization endpoints.
func (s *Service) Issue(ctx context.Context, accountID, clientID string, requested []string) (core.Token, string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("tokens"),
		logger.Op("Issue"),
		logger.AccountID(accountID),
		logger.ClientID(clientID),
	)

	granted, err := s.pdp.FilterScopes(ctx, accountID, requested)
	if err != nil {
		return core.Token{}, "", err
	}

	now := s.now().UTC()
	t := core.Token{
		ID:        uuid.NewString(),
		AccountID: accountID,
		ClientID:  clientID,
		Scopes:    granted,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.issuer.AccessTTL),
	}
	if err := s.tokens.Save(ctx, &t); err != nil {
		return core.Token{}, "", err
	}

	raw, err := s.issuer.Sign(jwtv5.MapClaims{
		"sub":       accountID,
		"client_id": clientID,
		"jti":       t.ID,
		"scope":     strings.Join(granted, " "),
		"exp":       t.ExpiresAt.Unix(),
		"iat":       t.IssuedAt.Unix(),
	})
	if err != nil {
		return core.Token{}, "", err
	}

	s.MarkUsed(ctx, clientID)

	log.Info("token issued", logger.TokenID(t.ID), logger.Scopes(granted))
	audit.Publish(ctx, s.events, audit.Event{
		Category:   audit.CategoryToken,
		AccountRef: accountID,
		Message:    "token issued",
		Payload:    audit.TokenIssued{TokenID: t.ID, ClientID: clientID, Scopes: granted},
	})
	return t, raw, nil
}

// MarkUsed bumps the client's last-used date. Best effort: a store failure
// is logged, never surfaced, since last-used is advisory date-granularity
// bookkeeping.
func (s *Service) MarkUsed(ctx context.Context, clientID string) {
	if s.clients == nil {
		return
	}
	if err := s.clients.BumpLastUsed(ctx, clientID); err != nil {
		logger.From(ctx).Warn("client last-used bump failed",
			logger.Component("tokens"),
			logger.ClientID(clientID),
			logger.Err(err),
		)
	}
}
