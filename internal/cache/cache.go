// Package cache provides a small multi-backend cache abstraction.
//
// Backends:
//   - memory (in-process, development and testing)
//   - redis (shared, production)
//
// It backs the token introspection result cache.
package cache

import (
	"context"
	"time"
)

// Client is the set of cache operations the services use.
type Client interface {
	// Get returns a value, or ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value. A ttl of 0 means no expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error

	// Stats returns backend statistics.
	Stats(ctx context.Context) (Stats, error)
}

// Stats holds cache statistics.
type Stats struct {
	Driver     string
	Keys       int64
	UsedMemory string
	Hits       int64
	Misses     int64
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind       string // "memory" | "redis"
	Addr       string
	Password   string
	DB         int
	Prefix     string // prepended to every key
	DefaultTTL time.Duration
}

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }

// IsNotFound reports whether the error means the key is absent.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New builds a client for the configured backend. Unknown kinds fall back to
// the in-process backend.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	}
}
