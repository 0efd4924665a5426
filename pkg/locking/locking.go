// Package locking serialises rule firings that share an idempotency key.
package locking

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned by TryLock when another holder owns the key.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive, expiring locks on string keys.
type Locker interface {
	// TryLock acquires key for at most ttl without waiting. It returns ErrNotAcquired
	// when the key is held.
	TryLock(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Lock is a held key. Release is safe to call more than once.
type Lock interface {
	Release(ctx context.Context) error
}

// Acquire retries TryLock every interval until it succeeds or ctx is done.
func Acquire(ctx context.Context, locker Locker, key string, ttl, interval time.Duration) (Lock, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		lock, err := locker.TryLock(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}

		if !errors.Is(err, ErrNotAcquired) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
