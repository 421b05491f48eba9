package jobcache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/job"
)

type fakeClock struct {
	now time.Time
	// onNow runs once on the next Now call.
	onNow func()
}

func (c *fakeClock) Now() time.Time {
	if hook := c.onNow; hook != nil {
		c.onNow = nil
		hook()
	}
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type backendFactory func(t *testing.T, clock *fakeClock) Cache

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		BackendMemory: func(t *testing.T, clock *fakeClock) Cache {
			return NewMemory(time.Hour, zap.NewNop()).WithClock(clock.Now)
		},
		BackendBadger: func(t *testing.T, clock *fakeClock) Cache {
			c, err := NewBadger(t.TempDir(), time.Hour, zap.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { c.Close() })
			return c.WithClock(clock.Now)
		},
		BackendRedis: func(t *testing.T, clock *fakeClock) Cache {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			return NewRedis(client, "test:", time.Hour, zap.NewNop()).WithClock(clock.Now)
		},
	}
}

func sampleJobs() []job.Job {
	return []job.Job{
		{ID: "1", Title: "Go Developer", Company: "Acme", SkillsRequired: []string{"Go"}},
		{ID: "2", Title: "Python Developer", Company: "Globex"},
	}
}

func TestKeyNormalization(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Key("Go Developer", "Berlin"), Key("  go developer ", "BERLIN "))
	assert.NotEqual(t, Key("go", "developer berlin"), Key("go developer", "berlin"))
}

func TestBackends(t *testing.T) {
	for name, factory := range backends() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("miss on empty cache", func(t *testing.T) {
				c := factory(t, &fakeClock{now: time.Now()})
				jobs, ok, err := c.Get(ctx, "go", "berlin")
				require.NoError(t, err)
				assert.False(t, ok)
				assert.Nil(t, jobs)
			})

			t.Run("hit within ttl with normalized key", func(t *testing.T) {
				clock := &fakeClock{now: time.Now()}
				c := factory(t, clock)

				require.NoError(t, c.Set(ctx, "Go Developer", "Berlin", sampleJobs()))
				clock.Advance(59 * time.Minute)

				jobs, ok, err := c.Get(ctx, " go developer", "berlin ")
				require.NoError(t, err)
				require.True(t, ok)
				require.Len(t, jobs, 2)
				assert.Equal(t, "Go Developer", jobs[0].Title)
				assert.Equal(t, []string{"Go"}, jobs[0].SkillsRequired)
			})

			t.Run("stale entry is evicted after ttl", func(t *testing.T) {
				clock := &fakeClock{now: time.Now()}
				c := factory(t, clock)

				require.NoError(t, c.Set(ctx, "python", "remote", sampleJobs()))
				clock.Advance(61 * time.Minute)

				_, ok, err := c.Get(ctx, "python", "remote")
				require.NoError(t, err)
				assert.False(t, ok)

				// Moving the clock back must not resurrect the evicted entry.
				clock.Advance(-61 * time.Minute)
				_, ok, err = c.Get(ctx, "python", "remote")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("clear drops everything", func(t *testing.T) {
				c := factory(t, &fakeClock{now: time.Now()})

				require.NoError(t, c.Set(ctx, "a", "x", sampleJobs()))
				require.NoError(t, c.Set(ctx, "b", "y", sampleJobs()))
				require.NoError(t, c.Clear(ctx))

				for _, q := range []string{"a", "b"} {
					_, ok, err := c.Get(ctx, q, map[string]string{"a": "x", "b": "y"}[q])
					require.NoError(t, err)
					assert.False(t, ok)
				}
			})
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemory(time.Hour, nil)
	require.NoError(t, c.Set(ctx, "go", "berlin", sampleJobs()))

	jobs, ok, err := c.Get(ctx, "go", "berlin")
	require.NoError(t, err)
	require.True(t, ok)
	jobs[0].SkillsRequired[0] = "mutated"

	again, _, _ := c.Get(ctx, "go", "berlin")
	assert.Equal(t, "Go", again[0].SkillsRequired[0])
}

func TestMemoryEvictionRemovesEntry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now()}
	c := NewMemory(time.Hour, nil).WithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "go", "berlin", sampleJobs()))
	require.Equal(t, 1, c.Len())

	clock.Advance(61 * time.Minute)
	_, ok, err := c.Get(ctx, "go", "berlin")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	c, closer, err := Open(ctx, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
	assert.NoError(t, closer.Close())

	c, closer, err = Open(ctx, &Config{Backend: "Badger", Path: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Badger{}, c)
	assert.NoError(t, closer.Close())

	mr := miniredis.RunT(t)
	c, closer, err = Open(ctx, &Config{Backend: BackendRedis, Redis: RedisConfig{URL: "redis://" + mr.Addr()}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, c)
	assert.NoError(t, closer.Close())

	_, _, err = Open(ctx, &Config{Backend: BackendRedis}, nil)
	assert.Error(t, err)

	_, _, err = Open(ctx, &Config{Backend: "memcached"}, nil)
	assert.Error(t, err)
}

func TestStaleReadKeepsConcurrentRefresh(t *testing.T) {
	for _, name := range []string{BackendMemory, BackendBadger} {
		factory := backends()[name]
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.Now()}
			c := factory(t, clock)

			require.NoError(t, c.Set(ctx, "go", "berlin", sampleJobs()))
			clock.Advance(61 * time.Minute)

			refreshed := []job.Job{{ID: "3", Title: "Staff Go Engineer"}}
			// The refresh lands after Get read the stale entry.
			clock.onNow = func() {
				require.NoError(t, c.Set(ctx, "go", "berlin", refreshed))
			}

			jobs, ok, err := c.Get(ctx, "go", "berlin")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "3", jobs[0].ID)

			jobs, ok, err = c.Get(ctx, "go", "berlin")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, refreshed[0].Title, jobs[0].Title)
		})
	}
}

func TestConcurrentSetAndGet(t *testing.T) {
	for _, name := range []string{BackendMemory, BackendBadger} {
		factory := backends()[name]
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := factory(t, &fakeClock{now: time.Now()})

			var wg sync.WaitGroup
			errs := make(chan error, 64)
			for i := 0; i < 16; i++ {
				query := fmt.Sprintf("query-%d", i%4)
				wg.Add(2)
				go func() {
					defer wg.Done()
					if err := c.Set(ctx, query, "berlin", sampleJobs()); err != nil {
						errs <- err
					}
				}()
				go func() {
					defer wg.Done()
					jobs, ok, err := c.Get(ctx, query, "berlin")
					if err != nil {
						errs <- err
						return
					}
					if ok && len(jobs) != len(sampleJobs()) {
						errs <- fmt.Errorf("%s: got %d jobs", query, len(jobs))
					}
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				assert.NoError(t, err)
			}

			for i := 0; i < 4; i++ {
				jobs, ok, err := c.Get(ctx, fmt.Sprintf("query-%d", i), "berlin")
				require.NoError(t, err)
				require.True(t, ok)
				require.Len(t, jobs, 2)
				assert.Equal(t, "Go Developer", jobs[0].Title)
			}
		})
	}
}
