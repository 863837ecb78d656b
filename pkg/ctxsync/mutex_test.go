package ctxsync_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vinicius-lino-figueiredo/godm/pkg/ctxsync"
)

// Multiple goroutines should not be able to acquire the same lock.
func TestLock(t *testing.T) {
	workers := 1000

	n := 0
	mu := ctxsync.NewMutex()

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			n++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, n)
}

// Locking gives up when the context is done.
func TestLockWithContext(t *testing.T) {
	mu := ctxsync.NewMutex()
	mu.Lock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, mu.LockWithContext(ctx), context.DeadlineExceeded)

	mu.Unlock()
	assert.NoError(t, mu.LockWithContext(context.Background()))
	mu.Unlock()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mu.LockWithContext(cancelled), context.Canceled)
}

// TryLock only succeeds on unlocked mutexes.
func TestTryLock(t *testing.T) {
	mu := ctxsync.NewMutex()
	assert.True(t, mu.TryLock())
	assert.False(t, mu.TryLock())
	mu.Unlock()
	assert.True(t, mu.TryLock())
}

// Unlocking an unlocked mutex panics.
func TestUnlockUnlocked(t *testing.T) {
	mu := ctxsync.NewMutex()
	assert.PanicsWithValue(t, "ctxsync: unlock of unlocked mutex", mu.Unlock)
}

// Do holds the lock while fn runs and releases it afterwards.
func TestDo(t *testing.T) {
	mu := ctxsync.NewMutex()

	err := mu.Do(context.Background(), func() error {
		assert.False(t, mu.TryLock())
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, mu.TryLock())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = mu.Do(cancelled, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
