package driven

import (
	"context"
	"time"
)

// DistributedLock provides named leases shared by every instance.
// The refresher uses it so a periodic macro refresh runs once per window
// across a deployment rather than once per instance.
type DistributedLock interface {
	// Acquire attempts to take the named lease for ttl.
	// Returns false if another instance already holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives the lease back early. Safe to call when not held.
	Release(ctx context.Context, name string) error

	// Holder returns the owner of the unexpired lease, or "" when free.
	Holder(ctx context.Context, name string) (string, error)

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
