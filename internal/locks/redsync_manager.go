package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"

	"artifact-cache/internal/common/errors"
	"artifact-cache/internal/redis"
)

// DefaultExpiry is how long a Redis lock lives without renewal
const DefaultExpiry = 30 * time.Second

// RedsyncManager implements Manager with the Redlock algorithm via
// go-redsync/redsync/v4. Held locks are renewed in the background at a third
// of their expiry so long writes of large artifacts keep the lock.
type RedsyncManager struct {
	redsync    *redsync.Redsync
	expiry     time.Duration
	localLocks map[*RedsyncLock]struct{}
	mutex      sync.Mutex
}

// RedsyncLock wraps a redsync.Mutex and its renewal goroutine
type RedsyncLock struct {
	mutex      *redsync.Mutex
	key        string
	expiration time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	manager    *RedsyncManager
	once       sync.Once
}

// NewRedsyncManager creates a Redis-backed lock manager. expiry <= 0 selects DefaultExpiry.
func NewRedsyncManager(redisClient *redis.Client, expiry time.Duration) (*RedsyncManager, error) {
	if redisClient == nil {
		return nil, errors.ConfigError("redis client is required")
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	pool := goredis.NewPool(redisClient.GetGoRedisClient())

	return &RedsyncManager{
		redsync:    redsync.New(pool),
		expiry:     expiry,
		localLocks: make(map[*RedsyncLock]struct{}),
	}, nil
}

// AcquireLock acquires the Redis lock "lock:<key>", retrying until redsync
// gives up or ctx is done.
func (rm *RedsyncManager) AcquireLock(ctx context.Context, key string) (Lock, error) {
	mutex := rm.redsync.NewMutex(fmt.Sprintf("lock:%s", key), redsync.WithExpiry(rm.expiry))

	if err := mutex.LockContext(ctx); err != nil {
		return nil, errors.InternalError("failed to acquire distributed lock "+key, err)
	}

	lockCtx, cancel := context.WithCancel(context.Background())
	lock := &RedsyncLock{
		mutex:      mutex,
		key:        key,
		expiration: rm.expiry,
		ctx:        lockCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
		manager:    rm,
	}

	rm.mutex.Lock()
	rm.localLocks[lock] = struct{}{}
	rm.mutex.Unlock()

	go rm.renewLock(lock)

	return lock, nil
}

func (rm *RedsyncManager) renewLock(lock *RedsyncLock) {
	defer close(lock.done)

	renewInterval := lock.expiration / 3
	if renewInterval < time.Second {
		renewInterval = time.Second
	}

	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-lock.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ok, err := lock.mutex.ExtendContext(ctx)
			cancel()

			if err != nil || !ok {
				// Lost in Redis; stop renewing, Release still cleans up.
				lock.cancel()
				return
			}
		}
	}
}

// Close releases every lock still held by this manager
func (rm *RedsyncManager) Close() error {
	rm.mutex.Lock()
	held := make([]*RedsyncLock, 0, len(rm.localLocks))
	for lock := range rm.localLocks {
		held = append(held, lock)
	}
	rm.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, lock := range held {
		_ = lock.Release(ctx)
	}
	return nil
}

// Key returns the unique identifier for this lock.
func (rl *RedsyncLock) Key() string {
	return rl.key
}

// Release stops renewal and unlocks the Redis mutex
func (rl *RedsyncLock) Release(ctx context.Context) error {
	var err error
	rl.once.Do(func() {
		rl.cancel()
		<-rl.done

		rl.manager.mutex.Lock()
		delete(rl.manager.localLocks, rl)
		rl.manager.mutex.Unlock()

		if _, unlockErr := rl.mutex.UnlockContext(ctx); unlockErr != nil {
			err = errors.InternalError("failed to release distributed lock "+rl.key, unlockErr)
		}
	})
	return err
}

// IsHeld returns true while the lock is held and renewals succeed
func (rl *RedsyncLock) IsHeld() bool {
	select {
	case <-rl.ctx.Done():
		return false
	default:
		return true
	}
}

var _ Manager = (*RedsyncManager)(nil)
