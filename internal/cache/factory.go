package cache

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"artifact-cache/internal/codec"
	"artifact-cache/internal/common/errors"
	"artifact-cache/internal/common/logging"
	"artifact-cache/internal/common/validation"
	"artifact-cache/internal/locks"
	"artifact-cache/internal/redis"
)

// Type represents the cache backend type
type Type string

const (
	TypeLocal Type = "local"
	TypeRedis Type = "redis"
)

// Config holds cache configuration. It is read once and handed to Open; no
// package-level state is consulted.
type Config struct {
	Type           Type          `yaml:"type" validate:"required,oneof=local redis"`
	MaxSize        *int          `yaml:"max_size" validate:"omitempty,gte=0"`
	EvictionBuffer int           `yaml:"eviction_buffer" validate:"gte=0"`
	Serializer     string        `yaml:"serializer" validate:"omitempty,oneof=gob json"`
	Compression    string        `yaml:"compression" validate:"omitempty,oneof=none zstd"`
	Path           string        `yaml:"path"`
	MemoryTTL      time.Duration `yaml:"memory_ttl" validate:"gte=0"`
	Lock           string        `yaml:"lock" validate:"omitempty,oneof=local redis"`
	Params         redis.Config  `yaml:"params" validate:"-"`
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	maxSize := DefaultMaxSize
	return Config{
		Type:           TypeLocal,
		MaxSize:        &maxSize,
		EvictionBuffer: DefaultEvictionBuffer,
		Serializer:     "gob",
		Compression:    "none",
		Path:           "./cache",
		Lock:           locks.KindLocal,
		Params: redis.Config{
			Address:  "localhost:6379",
			PoolSize: 10,
		},
	}
}

// Policy returns the eviction policy described by the config
func (c Config) Policy() Policy {
	if c.MaxSize == nil {
		return UnboundedPolicy()
	}
	return BoundedPolicy(*c.MaxSize, c.EvictionBuffer)
}

// Validate checks field rules and cross-field dependencies
func (c Config) Validate() error {
	v := validation.New()
	if err := v.ValidateStruct(c); err != nil {
		return err
	}

	switch c.Type {
	case TypeLocal:
		if c.Path == "" {
			return errors.ConfigError("cache path is required for the local backend")
		}
		if c.Lock == locks.KindRedis {
			return errors.ConfigError("redis locks require the redis cache backend")
		}
	case TypeRedis:
		if err := v.ValidateStruct(c.Params); err != nil {
			return err
		}
	}
	return nil
}

// Provider owns the one backend selected at Open and hands out
// category-scoped caches on it. Backends are never mixed within a Provider.
type Provider struct {
	config     Config
	client     *redis.Client
	locks      locks.Manager
	ownsLocks  bool
	serializer *Serializer
	memory     *gocache.Cache
	logger     logging.Logger
	now        func() time.Time

	sweepStop chan struct{}
	sweepDone chan struct{}

	mu     sync.Mutex
	caches map[string]*Cache

	closeOnce sync.Once
	closeErr  error
}

// Open validates config and connects the selected backend. For the redis
// backend the connection is established here, once; if it fails a
// ConnectionError is returned and there is no Provider to retry with.
//
// Serializer, policy and lock manager come from config; of the options only
// WithLogger and WithClock apply.
func Open(ctx context.Context, config Config, opts ...Option) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logging.GetGlobalLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}

	c, err := codec.Resolve(config.Serializer, config.Compression)
	if err != nil {
		return nil, errors.ConfigError(err.Error())
	}

	p := &Provider{
		config:     config,
		serializer: NewSerializer(c),
		logger:     s.logger,
		now:        s.now,
		caches:     make(map[string]*Cache),
	}

	if config.Type == TypeRedis {
		p.client, err = redis.NewClient(ctx, &config.Params)
		if err != nil {
			p.serializer.Close()
			return nil, err
		}
	}

	// In-process locks are shared with every other Cache in the process.
	if config.Lock == "" || config.Lock == locks.KindLocal {
		p.locks = defaultLocks
	} else {
		p.locks, err = locks.NewManager(config.Lock, p.client)
		if err != nil {
			p.serializer.Close()
			p.closeClient()
			return nil, err
		}
		p.ownsLocks = true
	}

	if config.MemoryTTL > 0 {
		p.memory = NewMemoryCache(config.MemoryTTL)
		p.sweepStop = make(chan struct{})
		p.sweepDone = make(chan struct{})
		go p.sweep(config.MemoryTTL)
	}

	p.logger.Info("Cache backend ready",
		logging.String("type", string(config.Type)),
		logging.String("codec", p.serializer.Codec()),
		logging.Any("max_size", config.MaxSize),
		logging.Int("eviction_buffer", config.EvictionBuffer),
		logging.Duration("memory_ttl", config.MemoryTTL),
	)
	return p, nil
}

// Type returns the selected backend
func (p *Provider) Type() Type {
	return p.config.Type
}

// Category returns the cache for category, creating it on first use. All
// callers asking for the same category share one Cache.
func (p *Provider) Category(category string) (*Cache, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.caches[category]; ok {
		return c, nil
	}

	if err := validation.New().ValidateVar(category, "category", "category"); err != nil {
		return nil, err
	}

	policy := p.config.Policy()

	var store Store
	switch p.config.Type {
	case TypeLocal:
		fs, err := NewFileStore(p.config.Path, category)
		if err != nil {
			return nil, err
		}
		store = fs
	case TypeRedis:
		store = NewRedisStore(p.client, category, policy.Bounded())
	default:
		return nil, errors.ConfigError("unknown cache type: " + string(p.config.Type))
	}

	if p.memory != nil {
		store = NewMemoryStore(store, p.memory, category)
	}

	c, err := New(category, store,
		WithSerializer(p.serializer),
		WithPolicy(policy),
		WithLockManager(p.locks),
		WithLogger(p.logger),
		WithClock(p.now),
	)
	if err != nil {
		return nil, err
	}

	p.caches[category] = c
	return c, nil
}

// sweep drops expired memory copies until Close
func (p *Provider) sweep(interval time.Duration) {
	defer close(p.sweepDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.sweepStop:
			return
		case <-ticker.C:
			p.memory.DeleteExpired()
		}
	}
}

// Close stops the memory sweeper, drops memory copies and releases codec
// workers, locks and the backend connection. Caches handed out by Category
// must not be used afterwards. Repeated calls return the first result.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		if p.sweepStop != nil {
			close(p.sweepStop)
			<-p.sweepDone
			p.memory.Flush()
		}

		var errs []error
		if p.ownsLocks {
			errs = append(errs, p.locks.Close())
		}
		errs = append(errs, p.serializer.Close(), p.closeClient())
		p.closeErr = stderrors.Join(errs...)
	})
	return p.closeErr
}

func (p *Provider) closeClient() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
