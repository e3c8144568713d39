package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*LeaseLock)(nil)

// LeaseLock keeps named leases as expiring Redis keys whose value is the
// holder's owner ID. Expiry is enforced by Redis, so a crashed instance
// frees its lease after ttl.
type LeaseLock struct {
	client  *redis.Client
	ownerID string
}

// NewLeaseLock creates a lease holder for this process.
func NewLeaseLock(client *redis.Client) *LeaseLock {
	hostname, _ := os.Hostname()
	return &LeaseLock{
		client:  client,
		ownerID: fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()),
	}
}

func leaseKey(name string) string {
	return "marketlens:lease:" + name
}

// Acquire sets the lease key only if it is absent. Returns false while any
// holder, this instance included, has an unexpired lease.
func (l *LeaseLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	err := l.client.SetArgs(ctx, leaseKey(name), l.ownerID, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return true, nil
}

// releaseIfOwner deletes KEYS[1] when it still holds ARGV[1].
var releaseIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
return redis.call("DEL", KEYS[1])
`)

// Release drops the lease if this instance holds it. Leases held by other
// instances are left alone.
func (l *LeaseLock) Release(ctx context.Context, name string) error {
	if err := releaseIfOwner.Run(ctx, l.client, []string{leaseKey(name)}, l.ownerID).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}

// Holder returns the owner ID stored in the lease, or "" when free.
func (l *LeaseLock) Holder(ctx context.Context, name string) (string, error) {
	owner, err := l.client.Get(ctx, leaseKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lease holder %s: %w", name, err)
	}
	return owner, nil
}

func (l *LeaseLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID identifies this process in lease values.
func (l *LeaseLock) OwnerID() string {
	return l.ownerID
}
