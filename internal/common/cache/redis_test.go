package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/cache"
)

func newTestCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("create cache failed: %v", err)
	}
	return c, mr
}

func TestRedisCacheSetGet(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "v" {
		t.Fatalf("expected v, got %q", got)
	}

	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}

	// A missing key is a miss, not an error.
	got, err = c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get on missing key failed: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty value for missing key, got %q", got)
	}
}

func TestRedisCacheSetNX(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	ctx := context.Background()

	acquired, err := c.SetNX(ctx, "slot", "running", time.Second)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if !acquired {
		t.Fatal("expected first setnx to acquire")
	}

	acquired, err = c.SetNX(ctx, "slot", "running", time.Second)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if acquired {
		t.Fatal("expected second setnx to be rejected")
	}

	mr.FastForward(2 * time.Second)
	acquired, err = c.SetNX(ctx, "slot", "running", time.Second)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if !acquired {
		t.Fatal("expected setnx to acquire after expiry")
	}
}

func TestGetWithCachedNullCaching(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(ctx context.Context) (string, error) {
		fetches++
		return "", nil
	}
	identity := func(s string) string { return s }
	parse := func(s string) (string, error) { return s, nil }
	isEmpty := func(s string) bool { return s == "" }

	for i := 0; i < 3; i++ {
		got, err := cache.GetWithCached[string](ctx, c, "missing", time.Minute, time.Minute, isEmpty, identity, parse, fetch)
		if err != nil {
			t.Fatalf("get with cache failed: %v", err)
		}
		if got != "" {
			t.Fatalf("expected empty result, got %q", got)
		}
	}
	if fetches != 1 {
		t.Fatalf("expected null value cached after first fetch, got %d fetches", fetches)
	}
}

func TestGetWithCachedFetchError(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	wantErr := errors.New("db down")
	fetch := func(ctx context.Context) (string, error) { return "", wantErr }
	identity := func(s string) string { return s }
	parse := func(s string) (string, error) { return s, nil }
	isEmpty := func(s string) bool { return s == "" }

	_, err := cache.GetWithCached[string](ctx, c, "k", time.Minute, time.Minute, isEmpty, identity, parse, fetch)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fetch error to propagate, got %v", err)
	}
}
