package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// MemoryStore puts an in-process layer of raw bytes in front of another
// store. Reads are served from memory when possible and concurrent misses for
// the same name share one backend read. Writes go through to the backend;
// removals, including evictions, drop the memory copy.
//
// Only this process sees its memory layer, so an entry replaced or removed
// by another process may be served stale until it expires.
type MemoryStore struct {
	inner    Store
	items    *gocache.Cache
	category string
	group    singleflight.Group

	// gen changes on every write or removal so that a read which raced with
	// one does not repopulate memory with the bytes it fetched.
	mu  sync.Mutex
	gen uint64
}

// NewMemoryCache creates the shared item cache for memory layers. It runs no
// janitor goroutine: expired items are never served, and the owner removes
// them with DeleteExpired (Provider does so every ttl until Close).
func NewMemoryCache(ttl time.Duration) *gocache.Cache {
	return gocache.New(ttl, 0)
}

// NewMemoryStore wraps inner. items may be shared between categories.
func NewMemoryStore(inner Store, items *gocache.Cache, category string) *MemoryStore {
	return &MemoryStore{inner: inner, items: items, category: category}
}

func (m *MemoryStore) key(name string) string {
	return m.category + "/" + name
}

// Read returns the memory copy or loads it from the backend
func (m *MemoryStore) Read(ctx context.Context, name string) ([]byte, error) {
	k := m.key(name)
	if v, ok := m.items.Get(k); ok {
		return v.([]byte), nil
	}

	v, err, _ := m.group.Do(k, func() (interface{}, error) {
		m.mu.Lock()
		gen := m.gen
		m.mu.Unlock()

		data, err := m.inner.Read(ctx, name)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		if m.gen == gen {
			m.items.SetDefault(k, data)
		}
		m.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Write stores data in the backend, then refreshes the memory copy
func (m *MemoryStore) Write(ctx context.Context, name string, data []byte, ts time.Time) error {
	err := m.inner.Write(ctx, name, data, ts)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if err != nil {
		m.items.Delete(m.key(name))
		return err
	}
	m.items.SetDefault(m.key(name), data)
	return nil
}

// Remove deletes from the backend and forgets the memory copy
func (m *MemoryStore) Remove(ctx context.Context, name string) error {
	err := m.inner.Remove(ctx, name)

	m.mu.Lock()
	m.gen++
	m.items.Delete(m.key(name))
	m.mu.Unlock()

	return err
}

// Exists answers from memory when it holds the entry
func (m *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	if _, ok := m.items.Get(m.key(name)); ok {
		return true, nil
	}
	return m.inner.Exists(ctx, name)
}

// Count delegates to the backend
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	return m.inner.Count(ctx)
}

// Entries delegates to the backend
func (m *MemoryStore) Entries(ctx context.Context) ([]Entry, error) {
	return m.inner.Entries(ctx)
}

var _ Store = (*MemoryStore)(nil)
