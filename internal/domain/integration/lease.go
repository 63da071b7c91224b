package integration

import (
	"context"
	"time"
)

// DefaultSyncLeaseTTL bounds how long a crashed run can block the next one
const DefaultSyncLeaseTTL = 30 * time.Minute

// Lease is a held per-integration mutual exclusion token
type Lease interface {
	// Release gives the lease up. Releasing an expired or stolen lease is a no-op.
	Release(ctx context.Context) error
}

// Locker grants per-integration leases. TryAcquire returns ErrSyncInProgress
// when another holder owns the key.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// SyncLeaseKey returns the lease key guarding runs of one integration
func SyncLeaseKey(integ *Integration) string {
	return "sync:integration:" + integ.ID.String()
}
