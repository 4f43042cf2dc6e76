package cache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implements Client on an in-process store with TTL eviction.
type memoryClient struct {
	prefix string
	store  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory builds an in-process cache. defaultTTL applies when Set is called
// with a ttl of 0.
func NewMemory(prefix string, defaultTTL time.Duration) *memoryClient {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &memoryClient{
		prefix: prefix,
		store:  gocache.New(defaultTTL, 5*time.Minute),
	}
}

func (c *memoryClient) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *memoryClient) Get(_ context.Context, key string) (string, error) {
	v, ok := c.store.Get(c.key(key))
	if !ok {
		c.misses.Add(1)
		return "", ErrNotFound
	}
	c.hits.Add(1)
	return v.(string), nil
}

func (c *memoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(c.key(key), value, ttl)
	return nil
}

func (c *memoryClient) Delete(_ context.Context, key string) error {
	c.store.Delete(c.key(key))
	return nil
}

func (c *memoryClient) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.store.Get(c.key(key))
	return ok, nil
}

func (c *memoryClient) Ping(context.Context) error { return nil }

func (c *memoryClient) Close() error {
	c.store.Flush()
	return nil
}

func (c *memoryClient) Stats(context.Context) (Stats, error) {
	return Stats{
		Driver: "memory",
		Keys:   int64(c.store.ItemCount()),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}, nil
}
