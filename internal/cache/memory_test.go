package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGetDelete(t *testing.T) {
	c := NewMemory("t", time.Minute)
	ctx := context.Background()

	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("Get on empty cache: %v", err)
	}

	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	ok, err := c.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("Get after Delete: %v", err)
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	c := NewMemory("", time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "short", "v", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := c.Get(ctx, "short"); !IsNotFound(err) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemory_Stats(t *testing.T) {
	c := NewMemory("", time.Minute)
	ctx := context.Background()

	_ = c.Set(ctx, "a", "1", 0)
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "absent")

	st, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Driver != "memory" || st.Keys != 1 || st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("Stats = %+v", st)
	}
}
