package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
)

const indexSuffix = "_index"

// CacheRepository keeps JSON payloads such as ranked mentor suggestions in
// Redis under a namespace. Every write also records the key in an index set
// for its group (the key up to its last colon), so invalidating a group such
// as "mentorship:suggestions:*" never walks the keyspace.
type CacheRepository struct {
	client    redis.UniversalClient
	namespace string
	logger    *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client redis.UniversalClient, namespace string, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, namespace: strings.TrimSuffix(namespace, ":"), logger: logger}
}

// Get retrieves and unmarshals the cached value into dest.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	full := r.key(key)
	raw, err := r.client.Get(ctx, full).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", full, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", full, err)
	}
	return nil
}

// Set stores value with ttl and indexes the key under its group.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	full := r.key(key)
	index := groupIndex(full)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, full, payload, ttl)
		pipe.SAdd(ctx, index, full)
		if ttl > 0 {
			pipe.Expire(ctx, index, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", full, err)
	}
	return nil
}

// DeleteByPattern removes a single key, or a whole group when pattern ends in
// ":*". Other wildcard patterns fall back to SCAN.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	if !strings.HasSuffix(pattern, "*") {
		full := r.key(pattern)
		_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Unlink(ctx, full)
			pipe.SRem(ctx, groupIndex(full), full)
			return nil
		})
		if err != nil {
			return fmt.Errorf("redis unlink %s: %w", full, err)
		}
		return nil
	}

	prefix := r.key(strings.TrimSuffix(pattern, "*"))
	if strings.HasSuffix(prefix, ":") {
		return r.dropGroup(ctx, prefix+indexSuffix)
	}
	return r.scanAndUnlink(ctx, prefix+"*")
}

func (r *CacheRepository) dropGroup(ctx context.Context, index string) error {
	members, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("redis smembers %s: %w", index, err)
	}
	keys := append(members, index)
	if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis unlink group %s: %w", index, err)
	}
	r.logger.Debug("cache group invalidated", zap.String("index", index), zap.Int("keys", len(members)))
	return nil
}

func (r *CacheRepository) scanAndUnlink(ctx context.Context, pattern string) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis unlink %s: %w", pattern, err)
	}
	return nil
}

func (r *CacheRepository) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

// groupIndex names the index set that tracks keys sharing full's group.
func groupIndex(full string) string {
	return full[:strings.LastIndex(full, ":")+1] + indexSuffix
}
