package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.clock = func() time.Time { return now }

	tok, ok, _ := l.Acquire(ctx, "critique:u1", time.Minute)
	if !ok || tok == "" {
		t.Fatal("first acquire should succeed with a token")
	}
	if _, ok, _ := l.Acquire(ctx, "critique:u1", time.Minute); ok {
		t.Fatal("second acquire should fail while held")
	}
	if _, ok, _ := l.Acquire(ctx, "critique:u2", time.Minute); !ok {
		t.Fatal("different key should be independent")
	}

	now = now.Add(2 * time.Minute)
	tok, ok, _ = l.Acquire(ctx, "critique:u1", time.Minute)
	if !ok {
		t.Fatal("expired lock should be acquirable")
	}

	_ = l.Release(ctx, "critique:u1", tok)
	if _, ok, _ := l.Acquire(ctx, "critique:u1", time.Minute); !ok {
		t.Fatal("released lock should be acquirable")
	}
}

func TestLocalLocker_StaleReleaseKeepsNewHolder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.clock = func() time.Time { return now }

	first, _, _ := l.Acquire(ctx, "critique:u1", time.Minute)
	now = now.Add(2 * time.Minute)
	second, ok, _ := l.Acquire(ctx, "critique:u1", time.Minute)
	if !ok || second == first {
		t.Fatalf("second holder token = %q, want a fresh token", second)
	}

	// The first holder finishes late and releases with its old token.
	_ = l.Release(ctx, "critique:u1", first)
	if _, ok, _ := l.Acquire(ctx, "critique:u1", time.Minute); ok {
		t.Fatal("stale release must not free the second holder's lock")
	}

	_ = l.Release(ctx, "critique:u1", second)
	if _, ok, _ := l.Acquire(ctx, "critique:u1", time.Minute); !ok {
		t.Fatal("owner release should free the lock")
	}
}

// REDIS_TEST_ADDR points at a disposable Redis; the test is skipped without it.
func TestRedisLocker_TokenRelease(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	l := NewRedisLockerFromClient(client, "handrating-test:", zap.NewNop())
	t.Cleanup(func() { _ = l.Close() })
	key := "critique:" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { client.Del(context.Background(), "handrating-test:"+key) })

	first, ok, err := l.Acquire(ctx, key, 50*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("Acquire() = %v, %v", ok, err)
	}
	if _, ok, _ := l.Acquire(ctx, key, time.Minute); ok {
		t.Fatal("second acquire should fail while held")
	}

	time.Sleep(100 * time.Millisecond)
	second, ok, err := l.Acquire(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire() after expiry = %v, %v", ok, err)
	}

	if err := l.Release(ctx, key, first); err != nil {
		t.Fatalf("stale Release() error = %v", err)
	}
	if _, ok, _ := l.Acquire(ctx, key, time.Minute); ok {
		t.Fatal("stale release must not free the second holder's lock")
	}

	if err := l.Release(ctx, key, second); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, ok, _ := l.Acquire(ctx, key, time.Minute); !ok {
		t.Fatal("owner release should free the lock")
	}
}
