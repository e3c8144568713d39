package mocks

import (
	"context"
	"sync"
	"time"
)

// MockDistributedLock is a mock implementation of DistributedLock for testing.
// It simulates leases with in-memory state and supports custom behavior injection.
type MockDistributedLock struct {
	mu     sync.Mutex
	leases map[string]time.Time
	owners map[string]string

	// Owner is written into leases this mock acquires
	Owner string

	// Custom behavior hooks (optional)
	AcquireFn func(name string, ttl time.Duration) (bool, error)
	PingFn    func() error

	acquireCalls int
}

// NewMockDistributedLock creates a new mock distributed lock.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{
		leases: make(map[string]time.Time),
		owners: make(map[string]string),
		Owner:  "mock-instance",
	}
}

// Acquire takes the named lease unless an unexpired one exists.
func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	m.acquireCalls++
	m.mu.Unlock()

	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.leases[name]; exists && time.Now().Before(expiry) {
		return false, nil
	}
	m.leases[name] = time.Now().Add(ttl)
	m.owners[name] = m.Owner
	return true, nil
}

// Release drops the named lease.
func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[name] == m.Owner {
		delete(m.leases, name)
		delete(m.owners, name)
	}
	return nil
}

// Holder returns the owner of the unexpired lease.
func (m *MockDistributedLock) Holder(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expiry, exists := m.leases[name]; exists && time.Now().Before(expiry) {
		return m.owners[name], nil
	}
	return "", nil
}

// Ping checks backend health.
func (m *MockDistributedLock) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// IsHeld checks if a lease is currently held (for test assertions).
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.leases[name]
	return exists && time.Now().Before(expiry)
}

// SetLockHeld forces a lease to be held by another instance (for test setup).
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leases[name] = time.Now().Add(ttl)
	m.owners[name] = "other-instance"
}

// AcquireCalls returns how many times Acquire was called.
func (m *MockDistributedLock) AcquireCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquireCalls
}
