package jobcache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/logger"
)

// Memory is the default process-local cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
	now     Clock
	logger  *zap.Logger
}

func NewMemory(ttl time.Duration, log *zap.Logger) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.OrNop(log),
	}
}

// WithClock replaces the time source. Intended for tests.
func (m *Memory) WithClock(c Clock) *Memory {
	m.now = c
	return m
}

func (m *Memory) Get(_ context.Context, query, location string) ([]job.Job, bool, error) {
	key := Key(query, location)

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if entry.fresh(m.now(), m.ttl) {
		m.logger.Debug("cache hit", zap.String("key", key), zap.Int("jobs", len(entry.Jobs)))
		return copyJobs(entry.Jobs), true, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another writer may have refreshed the entry meanwhile.
	current, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if current.fresh(m.now(), m.ttl) {
		return copyJobs(current.Jobs), true, nil
	}

	delete(m.entries, key)
	m.logger.Debug("cache entry expired", zap.String("key", key), zap.Time("cached_at", current.CachedAt))
	return nil, false, nil
}

func (m *Memory) Set(_ context.Context, query, location string, jobs []job.Job) error {
	key := Key(query, location)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &Entry{Key: key, Jobs: copyJobs(jobs), CachedAt: m.now()}
	m.logger.Debug("cache set", zap.String("key", key), zap.Int("jobs", len(jobs)))
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*Entry)
	return nil
}

// Len reports the number of stored entries, fresh or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
