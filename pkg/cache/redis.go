package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mikeboe/company-researcher/pkg/research"
)

const redisKeyPrefix = "search:"

// Redis is a shared cache backed by a Redis instance, for deployments
// where several researcher processes should reuse each other's searches.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(addr string, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client, ttl: ttl, logger: logger}, nil
}

// NewRedisWithClient wires an existing client, used by tests.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{client: client, ttl: ttl, logger: slog.Default()}
}

func (r *Redis) Get(ctx context.Context, key string) ([]research.SearchResult, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("Redis cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var results []research.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		r.logger.Warn("Corrupt cache entry, dropping", "key", key, "error", err)
		r.client.Del(ctx, redisKeyPrefix+key)
		return nil, false
	}
	return results, true
}

func (r *Redis) Put(ctx context.Context, key string, results []research.SearchResult) {
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("Redis cache write failed", "key", key, "error", err)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
