package metastore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// KeyPrefix prefixes every Redis key written by RedisStore.
const KeyPrefix = "tastypie:meta:"

// Hash fields of a metadata entry.
const (
	fieldSince      = "since"
	fieldTotalCount = "total_count"
	fieldUpdatedAt  = "updated_at"
)

// RedisStore keeps metadata in one Redis hash per type so that several
// processes walking the same API share their position.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store. A ttl of zero keeps entries
// until they are deleted.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// Key returns the Redis key holding metadata for typeKey.
func Key(typeKey string) string {
	return KeyPrefix + typeKey
}

// Get returns the metadata for typeKey or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, typeKey string) (*TypeMetadata, error) {
	fields, err := s.redis.HGetAll(ctx, Key(typeKey)).Result()
	if err != nil {
		storeErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("get metadata for %s: %w", typeKey, err)
	}

	if len(fields) == 0 {
		s.logger.Debug().Str("type", typeKey).Msg("No metadata in Redis")
		return nil, ErrNotFound
	}

	meta := &TypeMetadata{Since: fields[fieldSince]}

	if v := fields[fieldTotalCount]; v != "" {
		meta.TotalCount, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse total count for %s: %w", typeKey, err)
		}
	}

	if v := fields[fieldUpdatedAt]; v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse updated at for %s: %w", typeKey, err)
		}
		meta.UpdatedAt = time.UnixMilli(ts)
	}

	return meta, nil
}

// Set stores metadata for typeKey atomically.
func (s *RedisStore) Set(ctx context.Context, typeKey string, meta TypeMetadata) error {
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now()
	}

	key := Key(typeKey)
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, key,
		fieldSince, meta.Since,
		fieldTotalCount, meta.TotalCount,
		fieldUpdatedAt, meta.UpdatedAt.UnixMilli(),
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		storeErrorsTotal.WithLabelValues("set").Inc()
		return fmt.Errorf("store metadata for %s in redis: %w", typeKey, err)
	}

	s.logger.Debug().
		Str("type", typeKey).
		Str("since", meta.Since).
		Int("total_count", meta.TotalCount).
		Msg("Metadata stored")

	return nil
}

// Delete forgets typeKey.
func (s *RedisStore) Delete(ctx context.Context, typeKey string) error {
	if err := s.redis.Del(ctx, Key(typeKey)).Err(); err != nil {
		storeErrorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("delete metadata for %s: %w", typeKey, err)
	}
	return nil
}
