package locking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_TryLock(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	lock, err := m.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)

	_, err = m.TryLock(ctx, "k", time.Minute)
	require.ErrorIs(t, err, ErrNotAcquired)

	other, err := m.TryLock(ctx, "other", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lock.Release(ctx))
	require.NoError(t, lock.Release(ctx))

	again, err := m.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestMemory_ExpiredLockCanBeTaken(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory()
	m.clock = func() time.Time { return now }

	stale, err := m.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)

	fresh, err := m.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)

	// The expired holder must not release the new holder's lock.
	require.NoError(t, stale.Release(ctx))

	_, err = m.TryLock(ctx, "k", time.Minute)
	require.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, fresh.Release(ctx))
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first, err := m.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = first.Release(ctx)
	}()

	second, err := Acquire(ctx, m, "k", time.Minute, 5*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}

func TestAcquire_ContextDone(t *testing.T) {
	m := NewMemory()

	held, err := m.TryLock(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	defer held.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = Acquire(ctx, m, "k", time.Minute, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquire_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var inside, maxInside atomic.Int32

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			lock, err := Acquire(ctx, m, "k", time.Minute, time.Millisecond)
			if !assert.NoError(t, err) {
				return
			}

			n := inside.Add(1)
			for {
				current := maxInside.Load()
				if n <= current || maxInside.CompareAndSwap(current, n) {
					break
				}
			}

			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)

			_ = lock.Release(ctx)
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}
