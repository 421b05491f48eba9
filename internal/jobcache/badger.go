package jobcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/logger"
)

// Badger persists cache entries on disk so they survive restarts.
type Badger struct {
	mu     sync.Mutex
	store  *badgerhold.Store
	ttl    time.Duration
	now    Clock
	logger *zap.Logger
}

func NewBadger(path string, ttl time.Duration, log *zap.Logger) (*Badger, error) {
	if path == "" {
		return nil, errors.New("badger cache path is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger cache at %s: %w", path, err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Badger{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.OrNop(log),
	}, nil
}

func (b *Badger) WithClock(c Clock) *Badger {
	b.now = c
	return b
}

func (b *Badger) Get(_ context.Context, query, location string) ([]job.Job, bool, error) {
	key := Key(query, location)

	var entry Entry
	if err := b.store.Get(key, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}

	if entry.fresh(b.now(), b.ttl) {
		return entry.Jobs, true, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Another writer may have refreshed the entry meanwhile.
	var current Entry
	if err := b.store.Get(key, &current); err != nil {
		if !errors.Is(err, badgerhold.ErrNotFound) {
			b.logger.Warn("re-reading stale cache entry", zap.String("key", key), zap.Error(err))
		}
		return nil, false, nil
	}
	if current.fresh(b.now(), b.ttl) {
		return current.Jobs, true, nil
	}

	if err := b.store.Delete(key, &Entry{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		b.logger.Warn("evicting stale cache entry", zap.String("key", key), zap.Error(err))
	}
	return nil, false, nil
}

func (b *Badger) Set(_ context.Context, query, location string, jobs []job.Job) error {
	key := Key(query, location)
	entry := &Entry{Key: key, Jobs: copyJobs(jobs), CachedAt: b.now()}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.Upsert(key, entry); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (b *Badger) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.DeleteMatching(&Entry{}, badgerhold.Where("Key").Ne("")); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (b *Badger) Close() error {
	return b.store.Close()
}
