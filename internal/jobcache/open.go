package jobcache

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Open builds the backend named in cfg. The returned closer releases
// backend resources and is never nil.
func Open(ctx context.Context, cfg *Config, log *zap.Logger) (Cache, io.Closer, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	backend := BackendMemory
	if strings.TrimSpace(cfg.Backend) != "" {
		backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	}

	switch backend {
	case BackendMemory:
		return NewMemory(cfg.ttl(), log), nopCloser{}, nil
	case BackendBadger:
		c, err := NewBadger(cfg.Path, cfg.ttl(), log)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case BackendRedis:
		if strings.TrimSpace(cfg.Redis.URL) == "" {
			return nil, nil, errors.New("cache.redis.url is required for the redis backend")
		}
		client, err := NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedis(client, cfg.Redis.Prefix, cfg.ttl(), log), client, nil
	default:
		return nil, nil, unknownBackend(backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
