package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artifact-cache/internal/common/errors"
	"artifact-cache/internal/common/logging"
	"artifact-cache/internal/locks"
)

func localConfig(t *testing.T) Config {
	config := DefaultConfig()
	config.Path = t.TempDir()
	return config
}

func openProvider(t *testing.T, config Config) *Provider {
	t.Helper()
	p, err := Open(context.Background(), config, WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, TypeLocal, config.Type)
	require.NotNil(t, config.MaxSize)
	assert.Equal(t, 50, *config.MaxSize)
	assert.Equal(t, 5, config.EvictionBuffer)
	assert.Equal(t, "./cache", config.Path)
	assert.Equal(t, DefaultPolicy(), config.Policy())
	assert.NoError(t, config.Validate())

	config.MaxSize = nil
	assert.False(t, config.Policy().Bounded())
}

func TestConfig_Validate(t *testing.T) {
	negative := -1

	tests := []struct {
		name   string
		mutate func(*Config)
		errTyp errors.ErrorType
	}{
		{"unknown type", func(c *Config) { c.Type = "memcached" }, errors.ErrTypeValidation},
		{"negative max size", func(c *Config) { c.MaxSize = &negative }, errors.ErrTypeValidation},
		{"negative buffer", func(c *Config) { c.EvictionBuffer = -1 }, errors.ErrTypeValidation},
		{"unknown serializer", func(c *Config) { c.Serializer = "xml" }, errors.ErrTypeValidation},
		{"unknown compression", func(c *Config) { c.Compression = "lz4" }, errors.ErrTypeValidation},
		{"local without path", func(c *Config) { c.Path = "" }, errors.ErrTypeConfig},
		{"local with redis lock", func(c *Config) { c.Lock = locks.KindRedis }, errors.ErrTypeConfig},
		{"redis with bad address", func(c *Config) {
			c.Type = TypeRedis
			c.Params.Address = "no-port"
		}, errors.ErrTypeValidation},
		{"redis with bad db", func(c *Config) {
			c.Type = TypeRedis
			c.Params.DB = 16
		}, errors.ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			err := config.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.errTyp), "%v", err)
		})
	}
}

func TestOpen_Local(t *testing.T) {
	ctx := context.Background()
	config := localConfig(t)
	p := openProvider(t, config)
	assert.Equal(t, TypeLocal, p.Type())

	models, err := p.Category("models")
	require.NoError(t, err)

	again, err := p.Category("models")
	require.NoError(t, err)
	assert.Same(t, models, again)

	require.NoError(t, models.Set(ctx, "churn", map[string]int{"tenure": 3}))

	got, err := GetAs[map[string]int](ctx, models, "churn")
	require.NoError(t, err)
	assert.Equal(t, 3, got["tenure"])

	_, err = os.Stat(filepath.Join(config.Path, "models", "churn"))
	assert.NoError(t, err)

	_, err = p.Category("my_models")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestOpen_Redis(t *testing.T) {
	ctx := context.Background()
	_, mr := newMiniredisClient(t)

	config := DefaultConfig()
	config.Type = TypeRedis
	config.Params.Address = mr.Addr()
	p := openProvider(t, config)
	assert.Equal(t, TypeRedis, p.Type())

	queries, err := p.Category("queries")
	require.NoError(t, err)
	require.NoError(t, queries.Set(ctx, "q1", []string{"a", "b"}))

	assert.True(t, mr.Exists("queries_q1"))
	assert.NotEmpty(t, mr.HGet("queries", "q1"))

	got, err := GetAs[[]string](ctx, queries, "q1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestOpen_RedisUnbounded(t *testing.T) {
	ctx := context.Background()
	_, mr := newMiniredisClient(t)

	config := DefaultConfig()
	config.Type = TypeRedis
	config.MaxSize = nil
	config.Params.Address = mr.Addr()
	p := openProvider(t, config)

	c, err := p.Category("models")
	require.NoError(t, err)
	assert.False(t, c.Policy().Bounded())

	require.NoError(t, c.Set(ctx, "a", 1))
	assert.True(t, mr.Exists("models_a"))
	assert.False(t, mr.Exists("models"))
}

func TestOpen_RedisLocks(t *testing.T) {
	ctx := context.Background()
	_, mr := newMiniredisClient(t)

	config := DefaultConfig()
	config.Type = TypeRedis
	config.Lock = locks.KindRedis
	config.Params.Address = mr.Addr()
	p := openProvider(t, config)

	c, err := p.Category("models")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "a", "x"))
	require.NoError(t, c.Delete(ctx, "a"))

	assert.False(t, mr.Exists("lock:cache:models"), "lock released")
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mr := miniredisAddr(t)

	config := DefaultConfig()
	config.Type = TypeRedis
	config.Params.Address = mr

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	p, err := Open(ctx, config, WithLogger(logging.NewNopLogger()))
	assert.Nil(t, p)
	assert.True(t, errors.IsConnection(err), "%v", err)
}

// miniredisAddr returns the address of a server that has already shut down
func miniredisAddr(t *testing.T) string {
	_, mr := newMiniredisClient(t)
	addr := mr.Addr()
	mr.Close()
	return addr
}

func TestOpen_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.Serializer = "xml"

	p, err := Open(context.Background(), config)
	assert.Nil(t, p)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestOpen_MemoryLayer(t *testing.T) {
	ctx := context.Background()
	config := localConfig(t)
	config.MemoryTTL = time.Minute
	p := openProvider(t, config)

	c, err := p.Category("models")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, c.store)

	require.NoError(t, c.Set(ctx, "a", "cached"))
	got, err := GetAs[string](ctx, c, "a")
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
}

func TestOpen_CompressedJSON(t *testing.T) {
	ctx := context.Background()
	config := localConfig(t)
	config.Serializer = "json"
	config.Compression = "zstd"
	p := openProvider(t, config)

	c, err := p.Category("models")
	require.NoError(t, err)
	assert.Equal(t, "json+zstd", c.serializer.Codec())

	type artifact struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	require.NoError(t, c.Set(ctx, "a", artifact{Name: "a", Score: 0.9}))

	got, err := GetAs[artifact](ctx, c, "a")
	require.NoError(t, err)
	assert.Equal(t, artifact{Name: "a", Score: 0.9}, got)
}

func TestOpen_RedisLocksKeepCategoriesApart(t *testing.T) {
	ctx := context.Background()
	_, mr := newMiniredisClient(t)

	config := DefaultConfig()
	config.Type = TypeRedis
	config.Lock = locks.KindRedis
	config.Params.Address = mr.Addr()
	p := openProvider(t, config)

	_, err := p.Category("lock:cache:models")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation), "%v", err)

	models, err := p.Category("models")
	require.NoError(t, err)
	queries, err := p.Category("queries")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, models.Set(ctx, "lock:cache:queries", i))
		require.NoError(t, queries.Set(ctx, "lock:cache:models", i))
	}
	require.NoError(t, models.Delete(ctx, "lock:cache:queries"))

	assert.True(t, mr.Exists("queries_lock:cache:models"))
	assert.False(t, mr.Exists("lock:cache:models"))
	assert.False(t, mr.Exists("lock:cache:queries"))
}

func TestProvider_Close(t *testing.T) {
	ctx := context.Background()
	config := localConfig(t)
	config.MemoryTTL = 10 * time.Millisecond
	config.Compression = "zstd"

	p, err := Open(ctx, config, WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	c, err := p.Category("models")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "a", "payload"))

	assert.Eventually(t, func() bool { return p.memory.ItemCount() == 0 },
		time.Second, 5*time.Millisecond, "expired copies are swept")

	require.NoError(t, c.Set(ctx, "b", "payload"))
	require.NoError(t, p.Close())

	select {
	case <-p.sweepDone:
	default:
		t.Fatal("sweeper still running after Close")
	}
	assert.Zero(t, p.memory.ItemCount())
	assert.NoError(t, p.Close(), "second close")
}

func TestProvider_LocalLocksAreShared(t *testing.T) {
	config := localConfig(t)
	first := openProvider(t, config)
	second := openProvider(t, config)

	a, err := first.Category("models")
	require.NoError(t, err)
	b, err := second.Category("models")
	require.NoError(t, err)

	assert.Same(t, a.locks, b.locks)
	assert.NoError(t, first.Close())

	require.NoError(t, b.Set(context.Background(), "x", 1), "closing one provider leaves the shared locks usable")
}
