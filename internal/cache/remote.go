package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"artifact-cache/internal/common/errors"
	"artifact-cache/internal/redis"
)

// RedisStore keeps values at "<category>_<name>" in one flat keyspace and,
// when tracked, an eviction index in the hash "<category>" mapping each name
// to its last write time in Unix nanoseconds. Value and index record are
// always written and removed in one MULTI/EXEC.
type RedisStore struct {
	client   *redis.Client
	category string
	tracked  bool
}

// NewRedisStore returns a store for category on an already connected client.
// An untracked store keeps no index; use it only with an unbounded policy.
func NewRedisStore(client *redis.Client, category string, tracked bool) *RedisStore {
	return &RedisStore{client: client, category: category, tracked: tracked}
}

// Key returns the physical key for name
func (s *RedisStore) Key(name string) string {
	return s.category + "_" + name
}

// IndexKey returns the key of the category's eviction index
func (s *RedisStore) IndexKey() string {
	return s.category
}

// Read returns the value stored under name
func (s *RedisStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.GetBytes(ctx, s.Key(name))
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, errors.NotFoundError(s.category + "/" + name)
		}
		return nil, errors.InternalError("failed to read cache key", err).WithContext("key", s.Key(name))
	}
	return data, nil
}

// Write sets the value and its index record atomically
func (s *RedisStore) Write(ctx context.Context, name string, data []byte, ts time.Time) error {
	err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.Key(name), data, 0)
		if s.tracked {
			pipe.HSet(ctx, s.IndexKey(), name, ts.UnixNano())
		}
		return nil
	})
	if err != nil {
		return errors.InternalError("failed to write cache key", err).WithContext("key", s.Key(name))
	}
	return nil
}

// Remove deletes the value and its index record atomically. If exactly one of
// the two existed the index was out of sync with the values; both are gone
// afterwards but the inconsistency is reported as an EvictionIndexError.
func (s *RedisStore) Remove(ctx context.Context, name string) error {
	var delCmd, hdelCmd *goredis.IntCmd

	err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		delCmd = pipe.Del(ctx, s.Key(name))
		if s.tracked {
			hdelCmd = pipe.HDel(ctx, s.IndexKey(), name)
		}
		return nil
	})
	if err != nil {
		return errors.InternalError("failed to remove cache key", err).WithContext("key", s.Key(name))
	}

	removedValue := delCmd.Val() > 0
	if !s.tracked {
		if !removedValue {
			return errors.NotFoundError(s.category + "/" + name)
		}
		return nil
	}

	removedRecord := hdelCmd.Val() > 0
	switch {
	case !removedValue && !removedRecord:
		return errors.NotFoundError(s.category + "/" + name)
	case removedValue != removedRecord:
		return errors.EvictionIndexError(fmt.Sprintf("value and index record disagree for %s/%s", s.category, name)).
			WithContext("value_existed", removedValue).
			WithContext("index_existed", removedRecord)
	}
	return nil
}

// Exists reports whether the value key is present
func (s *RedisStore) Exists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.Key(name))
	if err != nil {
		return false, errors.InternalError("failed to check cache key", err).WithContext("key", s.Key(name))
	}
	return exists, nil
}

// Count returns the size of the eviction index
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.GetGoRedisClient().HLen(ctx, s.IndexKey()).Result()
	if err != nil {
		return 0, errors.InternalError("failed to count cache index", err).WithContext("key", s.IndexKey())
	}
	return int(n), nil
}

// Entries reads the whole eviction index. No keyspace scan is involved.
func (s *RedisStore) Entries(ctx context.Context) ([]Entry, error) {
	records, err := s.client.GetGoRedisClient().HGetAll(ctx, s.IndexKey()).Result()
	if err != nil {
		return nil, errors.InternalError("failed to read cache index", err).WithContext("key", s.IndexKey())
	}

	entries := make([]Entry, 0, len(records))
	for name, raw := range records {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.EvictionIndexError(fmt.Sprintf("bad timestamp %q for %s/%s", raw, s.category, name))
		}
		entries = append(entries, Entry{Name: name, Timestamp: time.Unix(0, nanos)})
	}
	return entries, nil
}

var _ Store = (*RedisStore)(nil)
