// Package locks provides the mutual exclusion used by the cache facade to
// serialize writes, deletes and eviction passes within a category.
//
// Two managers are available:
//   - LocalManager: in-process keyed locks, the default
//   - RedsyncManager: Redlock-based locks shared by every process that talks
//     to the same Redis, via go-redsync/redsync/v4
//
// Example usage:
//
//	manager := locks.NewLocalManager()
//	defer manager.Close()
//
//	lock, err := manager.AcquireLock(ctx, "cache:models")
//	if err != nil {
//		return err
//	}
//	defer lock.Release(ctx)
package locks

import (
	"context"
	"sync"

	"artifact-cache/internal/common/errors"
)

// Lock is a held lock. Release must be called exactly once.
type Lock interface {
	// Key returns the unique identifier for this lock.
	Key() string

	// Release gives the lock up. The lock must not be used afterwards.
	Release(ctx context.Context) error

	// IsHeld reports whether the lock is still held by this instance.
	// It checks local state only.
	IsHeld() bool
}

// Manager hands out exclusive locks by key.
type Manager interface {
	AcquireLock(ctx context.Context, key string) (Lock, error)
	Close() error
}

// LocalManager implements Manager with per-key in-process locks. Entries are
// reference counted so the map only holds keys that are locked or awaited.
//
// LocalManager is safe for concurrent use by multiple goroutines.
type LocalManager struct {
	mutex  sync.Mutex
	keys   map[string]*keyState
	closed bool
}

type keyState struct {
	sem  chan struct{}
	refs int
}

// LocalLock is a lock acquired from a LocalManager
type LocalLock struct {
	key     string
	state   *keyState
	manager *LocalManager
	once    sync.Once
	held    chan struct{}
}

// NewLocalManager creates an empty in-process lock manager
func NewLocalManager() *LocalManager {
	return &LocalManager{keys: make(map[string]*keyState)}
}

// AcquireLock blocks until key is free or ctx is done
func (m *LocalManager) AcquireLock(ctx context.Context, key string) (Lock, error) {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return nil, errors.InternalError("lock manager is closed", nil)
	}
	state, ok := m.keys[key]
	if !ok {
		state = &keyState{sem: make(chan struct{}, 1)}
		m.keys[key] = state
	}
	state.refs++
	m.mutex.Unlock()

	select {
	case state.sem <- struct{}{}:
		return &LocalLock{key: key, state: state, manager: m, held: make(chan struct{})}, nil
	case <-ctx.Done():
		m.unref(key, state)
		return nil, errors.InternalError("failed to acquire lock "+key, ctx.Err())
	}
}

func (m *LocalManager) unref(key string, state *keyState) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	state.refs--
	if state.refs == 0 && m.keys[key] == state {
		delete(m.keys, key)
	}
}

// Close rejects further acquisitions. Locks already held stay valid until released.
func (m *LocalManager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
	return nil
}

// Key returns the unique identifier for this lock.
func (l *LocalLock) Key() string {
	return l.key
}

// Release frees the key. Repeated calls are no-ops.
func (l *LocalLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		close(l.held)
		<-l.state.sem
		l.manager.unref(l.key, l.state)
	})
	return nil
}

// IsHeld returns true until Release is called
func (l *LocalLock) IsHeld() bool {
	select {
	case <-l.held:
		return false
	default:
		return true
	}
}

var _ Manager = (*LocalManager)(nil)
