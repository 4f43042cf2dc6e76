// Package pg implements the store interfaces on PostgreSQL with pgxpool.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/indigo-iam/iam-service/internal/store/core"
)

type Config struct {
	DSN             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

type Store struct {
	pool *pgxpool.Pool
}

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	} else {
		poolCfg.MinConns = 2
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
func (s *Store) Close()                         { s.pool.Close() }

func (s *Store) Policies() core.PolicyRepository  { return &policyRepo{pool: s.pool} }
func (s *Store) Tokens() core.TokenRepository     { return &tokenRepo{pool: s.pool} }
func (s *Store) Accounts() core.AccountRepository { return &accountRepo{pool: s.pool} }
func (s *Store) Clients() core.ClientRepository   { return &clientRepo{pool: s.pool} }
