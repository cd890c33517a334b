package cache

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"artifact-cache/internal/common/logging"
	"artifact-cache/internal/redis"
)

// fakeClock hands out strictly increasing timestamps, one second apart
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type backend struct {
	name     string
	newStore func(t *testing.T, category string, policy Policy) Store
}

func newMiniredisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(context.Background(), &redis.Config{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func backends() []backend {
	return []backend{
		{
			name: "local",
			newStore: func(t *testing.T, category string, policy Policy) Store {
				fs, err := NewFileStore(t.TempDir(), category)
				require.NoError(t, err)
				return fs
			},
		},
		{
			name: "redis",
			newStore: func(t *testing.T, category string, policy Policy) Store {
				client, _ := newMiniredisClient(t)
				return NewRedisStore(client, category, policy.Bounded())
			},
		},
	}
}

func newTestCache(t *testing.T, store Store, policy Policy, opts ...Option) *Cache {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{
		WithPolicy(policy),
		WithLogger(logging.NewNopLogger()),
		WithClock(clock.Now),
	}, opts...)
	c, err := New("models", store, opts...)
	require.NoError(t, err)
	return c
}

func entryNames(t *testing.T, store Store) []string {
	t.Helper()
	entries, err := store.Entries(context.Background())
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	sort.Strings(names)
	return names
}
