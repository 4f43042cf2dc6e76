package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/indigo-iam/iam-service/internal/observability/logger"
	migrations "github.com/indigo-iam/iam-service/migrations/postgres"
)

// migrationLockID keys the pg advisory lock so concurrent instances never
// apply the schema twice.
const migrationLockID int64 = 0x69616d5f6d696772 // "iam_migr"

// Migrate applies the embedded schema migrations in lexical order. Applied
// scripts are recorded in schema_migrations and skipped on later runs.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	log := logger.From(ctx).With(
		logger.Component("pg.migrate"),
	)

	lockCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := s.pool.Exec(lockCtx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return 0, fmt.Errorf("pg: acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := s.pool.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			log.Warn("release migration lock failed", logger.Err(err))
		}
	}()

	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return 0, err
	}

	names, err := migrationNames()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, name := range names {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name,
		).Scan(&exists); err != nil {
			return applied, err
		}
		if exists {
			continue
		}

		body, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return applied, err
		}
		if err := s.applyOne(ctx, name, string(body)); err != nil {
			return applied, fmt.Errorf("pg: migration %s: %w", name, err)
		}
		log.Info("migration applied", logger.String("name", name))
		applied++
	}
	return applied, nil
}

func (s *Store) applyOne(ctx context.Context, name, body string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, body); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (name) VALUES ($1)`, name,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
