package jobcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/logger"
)

const defaultRedisPrefix = "jobrag:jobs:"

// Redis shares cached results between processes. Entries also carry a redis
// expiry, but freshness is decided by CachedAt so all backends agree.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    Clock
	logger *zap.Logger
}

type redisEntry struct {
	Jobs     []job.Job `json:"jobs"`
	CachedAt time.Time `json:"cached_at"`
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.OrNop(log),
	}
}

func (r *Redis) WithClock(c Clock) *Redis {
	r.now = c
	return r
}

func (r *Redis) Get(ctx context.Context, query, location string) ([]job.Job, bool, error) {
	key := r.prefix + Key(query, location)

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var entry redisEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		r.client.Del(ctx, key)
		return nil, false, nil
	}

	if r.now().Sub(entry.CachedAt) < r.ttl {
		return entry.Jobs, true, nil
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("evicting stale cache entry", zap.String("key", key), zap.Error(err))
	}
	return nil, false, nil
}

func (r *Redis) Set(ctx context.Context, query, location string, jobs []job.Job) error {
	key := r.prefix + Key(query, location)

	data, err := json.Marshal(redisEntry{Jobs: jobs, CachedAt: r.now()})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
