package locks

import (
	"artifact-cache/internal/common/errors"
	"artifact-cache/internal/redis"
)

// Lock manager kinds
const (
	KindLocal = "local"
	KindRedis = "redis"
)

// NewManager creates the lock manager for kind. The redis kind requires a
// connected client; the local kind ignores it.
func NewManager(kind string, redisClient *redis.Client) (Manager, error) {
	switch kind {
	case "", KindLocal:
		return NewLocalManager(), nil
	case KindRedis:
		if redisClient == nil {
			return nil, errors.ConfigError("redis lock manager requires the redis cache backend")
		}
		return NewRedsyncManager(redisClient, DefaultExpiry)
	default:
		return nil, errors.ConfigError("unknown lock kind: " + kind)
	}
}
