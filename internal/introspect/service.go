// Package introspect answers whether an access token is currently active.
// A token is active when its signature verifies, it has not expired and its
// record still exists. Revocation removes the record, so revoked tokens go
// inactive immediately even while the JWT itself is still within lifetime.
package introspect

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/indigo-iam/iam-service/internal/cache"
	"github.com/indigo-iam/iam-service/internal/jwt"
	"github.com/indigo-iam/iam-service/internal/observability/logger"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

// Result is the introspection response body, RFC 7662 shaped.
type Result struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Sub       string `json:"sub,omitempty"`
	TokenID   string `json:"jti,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

type Service struct {
	tokens   core.TokenRepository
	issuer   *jwt.Issuer
	cache    cache.Client
	cacheTTL time.Duration
	group    singleflight.Group

	now func() time.Time
}

// NewService builds the introspection service. cacheClient may be nil to
// disable caching; cacheTTL bounds how stale a cached active result can be.
func NewService(tokens core.TokenRepository, issuer *jwt.Issuer, cacheClient cache.Client, cacheTTL time.Duration) *Service {
	return &Service{
		tokens:   tokens,
		issuer:   issuer,
		cache:    cacheClient,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Introspect resolves the state of a raw access token. Inactive results are
// always {active:false} with no further detail, per RFC 7662.
func (s *Service) Introspect(ctx context.Context, raw string) (Result, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("introspect"),
		logger.Op("Introspect"),
	)

	claims, err := jwt.ParseEdDSA(raw, s.issuer)
	if err != nil {
		return Result{Active: false}, nil
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return Result{Active: false}, nil
	}

	if cached, ok := s.fromCache(ctx, jti); ok {
		return cached, nil
	}

	// Concurrent lookups for the same token collapse into one store hit.
	v, err, _ := s.group.Do(jti, func() (any, error) {
		return s.lookup(ctx, jti)
	})
	if err != nil {
		log.Error("introspection lookup failed", logger.TokenID(jti), logger.Err(err))
		return Result{}, err
	}
	res := v.(Result)
	s.toCache(ctx, jti, res)
	return res, nil
}

func (s *Service) lookup(ctx context.Context, jti string) (Result, error) {
	t, err := s.tokens.FindByID(ctx, jti)
	if err != nil {
		if err == core.ErrNotFound {
			return Result{Active: false}, nil
		}
		return Result{}, err
	}
	if t.Expired(s.now()) {
		return Result{Active: false}, nil
	}
	return Result{
		Active:    true,
		Scope:     strings.Join(t.Scopes, " "),
		ClientID:  t.ClientID,
		Sub:       t.AccountID,
		TokenID:   t.ID,
		ExpiresAt: t.ExpiresAt.Unix(),
		IssuedAt:  t.IssuedAt.Unix(),
	}, nil
}

func (s *Service) fromCache(ctx context.Context, jti string) (Result, bool) {
	if s.cache == nil {
		return Result{}, false
	}
	raw, err := s.cache.Get(ctx, "introspect:"+jti)
	if err != nil {
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return Result{}, false
	}
	return res, true
}

func (s *Service) toCache(ctx context.Context, jti string, res Result) {
	if s.cache == nil {
		return
	}
	// Only positive results are cached. A cached {active:false} could mask a
	// token issued between two introspections of a replayed jti.
	if !res.Active {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, "introspect:"+jti, string(b), s.cacheTTL); err != nil {
		logger.From(ctx).Warn("introspection cache write failed",
			logger.Component("introspect"),
			logger.TokenID(jti),
			logger.Err(err),
		)
	}
}

// Invalidate drops the cached result for a token. Call on revocation so a
// cached active result does not outlive the token.
func (s *Service) Invalidate(ctx context.Context, jti string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "introspect:"+jti); err != nil {
		logger.From(ctx).Warn("introspection cache invalidation failed",
			logger.Component("introspect"),
			logger.TokenID(jti),
			logger.Err(err),
		)
	}
}
