package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestNewLeaseLock(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock := NewLeaseLock(client)
	if lock.ownerID == "" {
		t.Error("expected non-empty owner ID")
	}
	if NewLeaseLock(client).OwnerID() == lock.OwnerID() {
		t.Error("expected unique owner IDs")
	}
}

func TestLeaseLock_Acquire(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLeaseLock(client)
	lock2 := NewLeaseLock(client)

	acquired, err := lock1.Acquire(ctx, "macro-refresh", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Fatal("expected first lock to acquire")
	}
	if got, _ := mr.Get(leaseKey("macro-refresh")); got != lock1.OwnerID() {
		t.Errorf("stored owner = %q, want %q", got, lock1.OwnerID())
	}

	acquired, err = lock2.Acquire(ctx, "macro-refresh", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected second lock to fail")
	}

	// Not reentrant: the holder gets false too.
	acquired, _ = lock1.Acquire(ctx, "macro-refresh", 10*time.Second)
	if acquired {
		t.Error("expected reentrant acquire to fail")
	}
}

func TestLeaseLock_Acquire_AfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLeaseLock(client)
	lock2 := NewLeaseLock(client)

	if ok, _ := lock1.Acquire(ctx, "macro-refresh", time.Minute); !ok {
		t.Fatal("expected to acquire lock")
	}

	mr.FastForward(2 * time.Minute)

	acquired, err := lock2.Acquire(ctx, "macro-refresh", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected lease to be free after its TTL")
	}
}

func TestLeaseLock_Release(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	lock := NewLeaseLock(client)

	if err := lock.Release(ctx, "macro-refresh"); err != nil {
		t.Errorf("unexpected error releasing unheld lock: %v", err)
	}

	if ok, _ := lock.Acquire(ctx, "macro-refresh", 10*time.Second); !ok {
		t.Fatal("expected to acquire lock")
	}
	if err := lock.Release(ctx, "macro-refresh"); err != nil {
		t.Fatalf("unexpected error on release: %v", err)
	}
	if ok, _ := lock.Acquire(ctx, "macro-refresh", 10*time.Second); !ok {
		t.Error("expected to acquire lock after release")
	}
}

func TestLeaseLock_Release_ByDifferentOwner(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLeaseLock(client)
	lock2 := NewLeaseLock(client)

	if ok, _ := lock1.Acquire(ctx, "macro-refresh", 10*time.Second); !ok {
		t.Fatal("expected to acquire lock")
	}
	if err := lock2.Release(ctx, "macro-refresh"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := lock2.Acquire(ctx, "macro-refresh", 10*time.Second); ok {
		t.Error("expected lock to still be held by lock1")
	}
}

func TestLeaseLock_Holder(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	lock := NewLeaseLock(client)

	holder, err := lock.Holder(ctx, "macro-refresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if holder != "" {
		t.Errorf("free lease holder = %q, want empty", holder)
	}

	if ok, _ := lock.Acquire(ctx, "macro-refresh", time.Minute); !ok {
		t.Fatal("expected to acquire lock")
	}
	if holder, _ = lock.Holder(ctx, "macro-refresh"); holder != lock.OwnerID() {
		t.Errorf("holder = %q, want %q", holder, lock.OwnerID())
	}

	mr.FastForward(2 * time.Minute)
	if holder, _ = lock.Holder(ctx, "macro-refresh"); holder != "" {
		t.Errorf("expired lease holder = %q, want empty", holder)
	}

	if ok, _ := lock.Acquire(ctx, "macro-refresh", time.Minute); !ok {
		t.Fatal("expected to reacquire expired lease")
	}
	if err := lock.Release(ctx, "macro-refresh"); err != nil {
		t.Fatalf("unexpected error on release: %v", err)
	}
	if holder, _ = lock.Holder(ctx, "macro-refresh"); holder != "" {
		t.Errorf("released lease holder = %q, want empty", holder)
	}
}

func TestLeaseLock_DifferentNames(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	lock := NewLeaseLock(client)
	if ok, _ := lock.Acquire(ctx, "macro-refresh", 10*time.Second); !ok {
		t.Fatal("expected to acquire macro-refresh")
	}
	if ok, _ := lock.Acquire(ctx, "dataset-reload", 10*time.Second); !ok {
		t.Error("expected independent lock names")
	}
}

func TestLeaseLock_Ping(t *testing.T) {
	client, mr := setupTestRedis(t)

	lock := NewLeaseLock(client)
	if err := lock.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}

	mr.Close()
	if err := lock.Ping(context.Background()); err == nil {
		t.Error("expected ping error after server shutdown")
	}
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := Connect(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	if _, err := Connect(context.Background(), "not a url"); err == nil {
		t.Error("expected error for malformed url")
	}
}
