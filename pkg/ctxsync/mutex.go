// Package ctxsync contains synchronization primitives that can be abandoned
// when a context is done.
package ctxsync

import (
	"context"
)

// Mutex is a mutual exclusion lock whose waiters give up when their context
// is done. The zero value is not usable; use [NewMutex].
type Mutex struct {
	held chan struct{}
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{held: make(chan struct{}, 1)}
}

// Lock blocks until m is locked.
func (m *Mutex) Lock() {
	m.held <- struct{}{}
}

// LockWithContext blocks until m is locked or ctx is done, in which case the
// context error is returned and m is not locked. A done context never gets
// the lock, even if m is free.
func (m *Mutex) LockWithContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.held <- struct{}{}:
		return nil
	}
}

// TryLock locks m if it is free and reports whether it did.
func (m *Mutex) TryLock() bool {
	select {
	case m.held <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock unlocks m. It panics if m is not locked.
func (m *Mutex) Unlock() {
	select {
	case <-m.held:
	default:
		panic("ctxsync: unlock of unlocked mutex")
	}
}

// Do runs fn holding m. fn is not called if ctx is done before m is locked.
func (m *Mutex) Do(ctx context.Context, fn func() error) error {
	if err := m.LockWithContext(ctx); err != nil {
		return err
	}
	defer m.Unlock()
	return fn()
}
