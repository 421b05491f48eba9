package jobcache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/jobrag/internal/job"
)

const (
	DefaultTTL = time.Hour

	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"

	keySeparator = "\x1f"
)

// Cache keeps fetched jobs per (query, location) for a bounded time.
// Implementations evict stale entries lazily on Get and are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, query, location string) ([]job.Job, bool, error)
	Set(ctx context.Context, query, location string, jobs []job.Job) error
	Clear(ctx context.Context) error
}

// Entry is the stored form of a cached result.
type Entry struct {
	Key      string
	Jobs     []job.Job
	CachedAt time.Time
}

func (e *Entry) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CachedAt) < ttl
}

// Key normalizes a query and location into a cache key.
func Key(query, location string) string {
	return strings.ToLower(strings.TrimSpace(query)) + keySeparator + strings.ToLower(strings.TrimSpace(location))
}

type Clock func() time.Time

// Config selects and tunes a backend.
type Config struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Path    string        `mapstructure:"path"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

func (c *Config) ttl() time.Duration {
	if c == nil || c.TTL <= 0 {
		return DefaultTTL
	}
	return c.TTL
}

func copyJobs(jobs []job.Job) []job.Job {
	out := make([]job.Job, len(jobs))
	for i := range jobs {
		out[i] = jobs[i]
		out[i].SkillsRequired = append([]string(nil), jobs[i].SkillsRequired...)
	}
	return out
}

func unknownBackend(name string) error {
	return fmt.Errorf("unknown cache backend %q (want %s, %s or %s)", name, BackendMemory, BackendBadger, BackendRedis)
}
