package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"time"

	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*LeaseLock)(nil)

// LeaseLock implements DistributedLock with rows in the leases table.
// Unlike session advisory locks a row lease carries its own expiry, so it
// survives pooled connections being recycled and frees itself after ttl.
type LeaseLock struct {
	db      *DB
	ownerID string
	now     func() time.Time
}

// NewLeaseLock creates a PostgreSQL-backed lease holder for this process.
func NewLeaseLock(db *DB) *LeaseLock {
	hostname, _ := os.Hostname()
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return &LeaseLock{
		db:      db,
		ownerID: fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(b)),
		now:     time.Now,
	}
}

// hashLockName maps a lease name to the 64-bit primary key.
// FNV-1a keeps the value stable across processes.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("marketlens:lock:" + name))
	return int64(h.Sum64())
}

// Acquire inserts the lease row, or takes over an expired one, in a single
// statement. Returns false while an unexpired lease exists.
func (l *LeaseLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	now := l.now().UTC()
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO leases (lock_id, name, owner, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lock_id) DO UPDATE
		SET owner = EXCLUDED.owner, expires_at = EXCLUDED.expires_at
		WHERE leases.expires_at <= $5`,
		hashLockName(name), name, l.ownerID, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return n == 1, nil
}

// Release deletes the lease row if this instance owns it.
func (l *LeaseLock) Release(ctx context.Context, name string) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM leases WHERE lock_id = $1 AND owner = $2`,
		hashLockName(name), l.ownerID)
	if err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Holder returns the owner of the unexpired lease, or "".
func (l *LeaseLock) Holder(ctx context.Context, name string) (string, error) {
	var owner string
	err := l.db.QueryRowContext(ctx,
		`SELECT owner FROM leases WHERE lock_id = $1 AND expires_at > $2`,
		hashLockName(name), l.now().UTC()).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lease holder %s: %w", name, err)
	}
	return owner, nil
}

// Ping checks if the database is reachable
func (l *LeaseLock) Ping(ctx context.Context) error {
	return l.db.Ping(ctx)
}

// OwnerID returns the identifier written into held leases.
func (l *LeaseLock) OwnerID() string {
	return l.ownerID
}
