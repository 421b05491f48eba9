// Package scheduler keeps the job cache and vector index warm for a fixed
// set of searches.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/logger"
)

const DefaultInterval = 6 * time.Hour

type Warmer interface {
	Warm(ctx context.Context, query, location string, num int) (int, error)
}

// Query is one watched search.
type Query struct {
	Query    string `mapstructure:"query"`
	Location string `mapstructure:"location"`
	NumJobs  int    `mapstructure:"num-jobs"`
}

// Scheduler wraps robfig/cron and runs the warm-up cycle.
type Scheduler struct {
	cron    *cron.Cron
	warmer  Warmer
	queries []Query
	spec    string
	logger  *zap.Logger
}

func New(warmer Warmer, queries []Query, every time.Duration, log *zap.Logger) (*Scheduler, error) {
	if warmer == nil {
		return nil, errors.New("scheduler: warmer is required")
	}
	if len(queries) == 0 {
		return nil, errors.New("scheduler: no queries to watch")
	}
	if every <= 0 {
		every = DefaultInterval
	}

	log = logger.OrNop(log)
	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))

	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		warmer:  warmer,
		queries: queries,
		spec:    fmt.Sprintf("@every %s", every),
		logger:  log,
	}, nil
}

// Start registers the cycle and runs one immediately without blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec), zap.Int("queries", len(s.queries)))

	go s.RunOnce(ctx)

	return nil
}

// Stop halts the schedule and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunOnce warms every watched query. Failures are logged and the cycle
// moves on to the next query.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.logger.Info("warm-up cycle started")

	total := 0
	for _, q := range s.queries {
		if ctx.Err() != nil {
			s.logger.Warn("warm-up cycle interrupted", zap.Error(ctx.Err()))
			return total
		}

		n, err := s.warmer.Warm(ctx, q.Query, q.Location, q.NumJobs)
		if err != nil {
			s.logger.Error("warm-up failed",
				zap.String(logger.FieldQuery, q.Query),
				zap.String(logger.FieldLocation, q.Location),
				zap.Error(err),
			)
			continue
		}
		total += n
		s.logger.Debug("warmed query", zap.String(logger.FieldQuery, q.Query), zap.Int("indexed", n))
	}

	s.logger.Info("warm-up cycle complete", zap.Int("indexed", total))
	return total
}
