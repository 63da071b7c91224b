// Package lease provides per-integration mutual exclusion for sync runs.
package lease

import (
	"context"
	"sync"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/google/uuid"
)

type heldLease struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker grants leases within a single process.
// It is suitable for single-instance deployments and tests.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]heldLease
	now    func() time.Time
}

// NewMemoryLocker creates a new in-memory locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		leases: make(map[string]heldLease),
		now:    time.Now,
	}
}

// TryAcquire takes the lease for key, or fails with ErrSyncInProgress while
// an unexpired holder exists.
func (l *MemoryLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (integration.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expiresAt) {
		return nil, integration.ErrSyncInProgress
	}

	token := uuid.NewString()
	l.leases[key] = heldLease{token: token, expiresAt: now.Add(ttl)}
	return &memoryLease{locker: l, key: key, token: token}, nil
}

func (l *MemoryLocker) release(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.leases[key]; ok && held.token == token {
		delete(l.leases, key)
	}
}

type memoryLease struct {
	locker *MemoryLocker
	key    string
	token  string
	once   sync.Once
}

// Release gives the lease up if it is still ours
func (m *memoryLease) Release(context.Context) error {
	m.once.Do(func() { m.locker.release(m.key, m.token) })
	return nil
}

var _ integration.Locker = (*MemoryLocker)(nil)
