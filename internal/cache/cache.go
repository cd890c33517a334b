package cache

import (
	"context"
	"time"

	"artifact-cache/internal/common/errors"
	"artifact-cache/internal/common/logging"
	"artifact-cache/internal/common/validation"
	"artifact-cache/internal/locks"
)

// Cache is the category-scoped surface used by callers: Get, Set, Delete and
// Contains. Set, Delete and the eviction pass triggered by Set hold the
// category lock; Get and Contains run without it.
//
// Cache is safe for concurrent use by multiple goroutines.
type Cache struct {
	category   string
	store      Store
	serializer *Serializer
	policy     Policy
	locks      locks.Manager
	validator  *validation.Validator
	logger     logging.Logger
	now        func() time.Time
}

// Option customizes a Cache or Provider
type Option func(*settings)

type settings struct {
	serializer *Serializer
	policy     *Policy
	locks      locks.Manager
	logger     logging.Logger
	now        func() time.Time
}

// WithSerializer sets the serializer. Provider derives it from config instead.
func WithSerializer(s *Serializer) Option {
	return func(o *settings) { o.serializer = s }
}

// WithPolicy sets the eviction policy. Provider derives it from config instead.
func WithPolicy(p Policy) Option {
	return func(o *settings) { o.policy = &p }
}

// defaultLocks serializes writers of every Cache built without
// WithLockManager, so two caches on the same category exclude each other.
var defaultLocks = locks.NewLocalManager()

// WithLockManager sets the lock manager. Without it the process-wide
// in-process manager is used. Provider derives it from config instead.
func WithLockManager(m locks.Manager) Option {
	return func(o *settings) { o.locks = m }
}

// WithLogger sets the logger; the global logger is used otherwise
func WithLogger(l logging.Logger) Option {
	return func(o *settings) { o.logger = l }
}

// WithClock sets the source of write timestamps
func WithClock(now func() time.Time) Option {
	return func(o *settings) { o.now = now }
}

func applyOptions(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.serializer == nil {
		s.serializer = NewSerializer(nil)
	}
	if s.policy == nil {
		p := DefaultPolicy()
		s.policy = &p
	}
	if s.locks == nil {
		s.locks = defaultLocks
	}
	if s.logger == nil {
		s.logger = logging.GetGlobalLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// New creates a cache for category on top of store
func New(category string, store Store, opts ...Option) (*Cache, error) {
	v := validation.New()
	if err := v.ValidateVar(category, "category", "category"); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.ConfigError("cache store is required")
	}

	s := applyOptions(opts)
	return &Cache{
		category:   category,
		store:      store,
		serializer: s.serializer,
		policy:     *s.policy,
		locks:      s.locks,
		validator:  v,
		logger:     s.logger.WithFields(logging.String("category", category)),
		now:        s.now,
	}, nil
}

// Category returns the namespace this cache is scoped to
func (c *Cache) Category() string {
	return c.category
}

// Policy returns the eviction policy in effect
func (c *Cache) Policy() Policy {
	return c.policy
}

func (c *Cache) checkName(name string) error {
	return c.validator.ValidateVar(name, "cachekey", "name")
}

func (c *Cache) lockKey() string {
	return "cache:" + c.category
}

// Get decodes the value stored under name into dest, which must be a
// non-nil pointer. A missing entry is a NotFoundError.
func (c *Cache) Get(ctx context.Context, name string, dest any) error {
	if err := c.checkName(name); err != nil {
		return err
	}

	data, err := c.store.Read(ctx, name)
	if err != nil {
		return err
	}
	return c.serializer.Deserialize(data, dest)
}

// GetAs returns the value stored under name as a T
func GetAs[T any](ctx context.Context, c *Cache, name string) (T, error) {
	var v T
	err := c.Get(ctx, name, &v)
	return v, err
}

// Set stores value under name, overwriting any previous entry and refreshing
// its timestamp, then runs the eviction pass. Eviction problems are logged
// and never fail the Set.
func (c *Cache) Set(ctx context.Context, name string, value any) error {
	if err := c.checkName(name); err != nil {
		return err
	}

	data, err := c.serializer.Serialize(value)
	if err != nil {
		return err
	}

	lock, err := c.locks.AcquireLock(ctx, c.lockKey())
	if err != nil {
		return err
	}
	defer c.release(ctx, lock)

	if err := c.store.Write(ctx, name, data, c.now()); err != nil {
		return err
	}

	c.evict(ctx)
	return nil
}

// Delete removes name. A missing entry is a NotFoundError.
func (c *Cache) Delete(ctx context.Context, name string) error {
	if err := c.checkName(name); err != nil {
		return err
	}

	lock, err := c.locks.AcquireLock(ctx, c.lockKey())
	if err != nil {
		return err
	}
	defer c.release(ctx, lock)

	return c.store.Remove(ctx, name)
}

// Contains reports whether name is stored. Absence, including a name that
// can never be stored, is false rather than an error.
func (c *Cache) Contains(ctx context.Context, name string) (bool, error) {
	if !validation.IsCacheKey(name) {
		return false, nil
	}
	return c.store.Exists(ctx, name)
}

func (c *Cache) release(ctx context.Context, lock locks.Lock) {
	if err := lock.Release(ctx); err != nil {
		c.logger.Warn("Failed to release cache lock", logging.String("lock", lock.Key()), logging.Err(err))
	}
}

// evict runs one eviction pass. The caller holds the category lock.
func (c *Cache) evict(ctx context.Context) EvictionReport {
	var report EvictionReport
	if !c.policy.Bounded() {
		return report
	}

	count, err := c.store.Count(ctx)
	if err != nil {
		c.logger.Warn("Skipping eviction, cannot count entries", logging.Err(err))
		return report
	}
	report.Count = count

	if !c.policy.Exceeded(count) {
		return report
	}
	start := time.Now()

	entries, err := c.store.Entries(ctx)
	if err != nil {
		c.logger.Warn("Skipping eviction, cannot read eviction index", logging.Err(err))
		return report
	}

	for _, name := range c.policy.Victims(entries) {
		if err := c.store.Remove(ctx, name); err != nil {
			if report.Failed == nil {
				report.Failed = make(map[string]error)
			}
			report.Failed[name] = err
			c.logger.Warn("Failed to evict cache entry", logging.String("name", name), logging.Err(err))
			continue
		}
		report.Evicted = append(report.Evicted, name)
	}

	c.logger.Debug("Evicted cache entries by name", logging.Strings("names", report.Evicted))
	c.logger.Info("Evicted cache entries",
		logging.Int("count", count),
		logging.Int("evicted", len(report.Evicted)),
		logging.Int("failed", len(report.Failed)),
		logging.Duration("took", time.Since(start)),
	)
	return report
}
