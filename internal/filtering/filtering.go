package filtering

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/logger"
)

// Filter represents a single filtering step applied to candidate jobs.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(c *Constraints) error
	Apply(ctx context.Context, deps Deps, b *Batch) (Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger  *zap.Logger
	Weights Weights
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Constraints are the user-facing filter knobs. Zero values disable the
// corresponding step.
type Constraints struct {
	MinMatchScore    float64 `mapstructure:"min-match-score" validate:"gte=0,lte=100"`
	ExperienceLevel  string  `mapstructure:"experience-level"`
	PostedWithinDays int     `mapstructure:"posted-within-days" validate:"gte=0"`
	ExcludeRemote    bool    `mapstructure:"exclude-remote"`
	MinSalary        float64 `mapstructure:"min-salary" validate:"gte=0"`
	MaxSalary        float64 `mapstructure:"max-salary" validate:"gte=0"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Candidate is a job under consideration together with its scores.
type Candidate struct {
	Job        job.Job
	MatchScore float64
	HasScore   bool
	Quality    float64
}

type Batch struct {
	Items []*Candidate
}

// NewBatch wraps jobs into candidates. scores is keyed by job id; jobs
// without an entry are treated as not yet scored.
func NewBatch(jobs []job.Job, scores map[string]float64, w Weights) *Batch {
	b := &Batch{Items: make([]*Candidate, 0, len(jobs))}
	for _, j := range jobs {
		c := &Candidate{Job: j, Quality: QualityScore(j, w)}
		if s, ok := scores[j.ID]; ok {
			c.MatchScore = s
			c.HasScore = true
		}
		b.Items = append(b.Items, c)
	}
	return b
}

func (b *Batch) Len() int {
	return len(b.Items)
}

func (b *Batch) Jobs() []job.Job {
	out := make([]job.Job, 0, len(b.Items))
	for _, c := range b.Items {
		out = append(out, c.Job)
	}
	return out
}

// Keep retains candidates accepted by keep and returns the ids of the dropped ones.
func (b *Batch) Keep(keep func(*Candidate) bool) []string {
	var (
		kept     = b.Items[:0]
		excluded []string
	)
	for _, c := range b.Items {
		if keep(c) {
			kept = append(kept, c)
			continue
		}
		excluded = append(excluded, c.Job.ID)
	}
	for i := len(kept); i < len(b.Items); i++ {
		b.Items[i] = nil
	}
	b.Items = kept
	return excluded
}

// Rank orders candidates by the composite of match and quality scores.
// Equal keys keep their current order.
func (b *Batch) Rank(w Weights) {
	sort.SliceStable(b.Items, func(i, j int) bool {
		return w.rankKey(b.Items[i]) > w.rankKey(b.Items[j])
	})
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and ranks the survivors.
func Run(ctx context.Context, c *Constraints, deps Deps, steps []Filter, b *Batch) error {
	log := logger.OrNop(deps.Logger)

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(c); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			log.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := step.Apply(ctx, deps, b)
		if err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}

		log.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
	}

	b.Rank(deps.Weights)
	return nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// Default returns the standard step sequence.
func Default() []Filter {
	return []Filter{
		NewMinMatchScore(),
		NewQuality(),
		NewExperienceLevel(),
		NewRecency(),
		NewRemote(),
		NewSalary(),
	}
}

// Apply runs the default steps over jobs and returns the survivors in rank
// order. Applying it to its own output with the same inputs changes nothing.
func Apply(ctx context.Context, jobs []job.Job, scores map[string]float64, c Constraints, w Weights, log *zap.Logger) ([]job.Job, error) {
	return ApplySteps(ctx, Default(), jobs, scores, c, w, log)
}

// ApplySteps is Apply with a caller supplied step sequence. Steps keep
// per-run state, so a sequence must not be shared between concurrent runs.
func ApplySteps(ctx context.Context, steps []Filter, jobs []job.Job, scores map[string]float64, c Constraints, w Weights, log *zap.Logger) ([]job.Job, error) {
	w = w.orDefault()
	b := NewBatch(jobs, scores, w)
	if err := Run(ctx, &c, Deps{Logger: log, Weights: w}, steps, b); err != nil {
		return nil, err
	}

	logger.OrNop(log).Info("filtered jobs", zap.Int("initial", len(jobs)), zap.Int("left", b.Len()))
	return b.Jobs(), nil
}
