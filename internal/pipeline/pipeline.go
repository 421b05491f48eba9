// Package pipeline orchestrates one resume-to-jobs request: fetch or reuse
// postings, filter, index, retrieve and score.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/filtering"
	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/jobcache"
	"github.com/spigell/jobrag/internal/jobsource"
	"github.com/spigell/jobrag/internal/logger"
	"github.com/spigell/jobrag/internal/matching"
	"github.com/spigell/jobrag/internal/vectorindex"
)

const (
	DefaultLocation = "India"
	DefaultNumJobs  = 20
	DefaultTopK     = 10
	MaxTopK         = 50

	warnIndexing = "Using fallback matching"
	warnSearch   = "Using basic matching"
)

var ErrInvalidRequest = errors.New("invalid request")

type Index interface {
	Add(ctx context.Context, jobs []job.Job) (int, error)
	Search(ctx context.Context, text string, topK int, opts ...vectorindex.SearchOption) ([]vectorindex.Hit, error)
	Stats() vectorindex.Stats
	Clear(ctx context.Context) error
}

type Matcher interface {
	Match(ctx context.Context, resumeText string, retrieved []matching.Retrieved) []matching.Match
}

type Deps struct {
	Source jobsource.Source
	Cache  jobcache.Cache
	Index  Index
	Engine Matcher
	Logger *zap.Logger
}

type Options struct {
	Location       string            `mapstructure:"location"`
	NumJobs        int               `mapstructure:"num-jobs"`
	TopK           int               `mapstructure:"top-k"`
	QualityWeights filtering.Weights `mapstructure:"quality"`
	// DisabledFilters names filter steps to skip, e.g. "quality".
	DisabledFilters []string `mapstructure:"disabled-filters"`
}

type Request struct {
	ResumeText  string `validate:"required,min=10"`
	JobQuery    string `validate:"required"`
	Location    string
	NumJobs     int `validate:"gte=0"`
	TopK        int `validate:"gte=0"`
	UseCache    bool
	Constraints filtering.Constraints
}

type Result struct {
	Matches      []matching.Match `json:"matched_jobs"`
	JobsFetched  int              `json:"jobs_fetched"`
	TotalMatches int              `json:"total_matches"`
	CacheUsed    bool             `json:"cache_used"`
	Query        string           `json:"query"`
	Location     string           `json:"location"`
	Warnings     []string         `json:"warnings"`
	ErrorMessage string           `json:"error_message,omitempty"`
	// Jobs is the fetched batch before filtering.
	Jobs []job.Job `json:"-"`
}

type Pipeline struct {
	source   jobsource.Source
	cache    jobcache.Cache
	index    Index
	engine   Matcher
	opts     Options
	validate *validator.Validate
	logger   *zap.Logger
}

func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline: job source is required")
	case deps.Index == nil:
		return nil, errors.New("pipeline: vector index is required")
	case deps.Engine == nil:
		return nil, errors.New("pipeline: match engine is required")
	}

	cache := deps.Cache
	if cache == nil {
		cache = jobcache.NewMemory(jobcache.DefaultTTL, deps.Logger)
	}

	if strings.TrimSpace(opts.Location) == "" {
		opts.Location = DefaultLocation
	}
	if opts.NumJobs <= 0 {
		opts.NumJobs = DefaultNumJobs
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	known := make(map[string]struct{})
	for _, st := range filtering.Describe(filtering.Default()) {
		known[st.Name] = struct{}{}
	}
	for _, name := range opts.DisabledFilters {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("pipeline: unknown filter %q", name)
		}
	}

	p := &Pipeline{
		source:   deps.Source,
		cache:    cache,
		index:    deps.Index,
		engine:   deps.Engine,
		opts:     opts,
		validate: validator.New(),
		logger:   logger.WithFields(deps.Logger, zap.String(logger.FieldSource, deps.Source.Name())),
	}

	p.logger.Debug("filters configured", zap.Any("filters", filtering.Describe(p.filters())))
	return p, nil
}

// filters returns a fresh step sequence for one request.
func (p *Pipeline) filters() []filtering.Filter {
	steps := filtering.Default()
	for _, name := range p.opts.DisabledFilters {
		filtering.DisableByName(steps, name, "disabled in config")
	}
	return steps
}

// FetchAndMatch runs the whole request. Upstream, indexing and retrieval
// failures are absorbed into Result.Warnings; only invalid input, an
// invalid filter constraint or cancellation return an error.
func (p *Pipeline) FetchAndMatch(ctx context.Context, req Request) (*Result, error) {
	req.ResumeText = strings.TrimSpace(req.ResumeText)
	req.JobQuery = strings.TrimSpace(req.JobQuery)
	if err := p.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = p.opts.Location
	}
	numJobs := req.NumJobs
	if numJobs == 0 {
		numJobs = p.opts.NumJobs
	}
	numJobs = jobsource.ClampLimit(numJobs, p.source.MaxLimit())
	topK := req.TopK
	if topK == 0 {
		topK = p.opts.TopK
	}
	topK = jobsource.ClampLimit(topK, MaxTopK)

	log := logger.WithFields(p.logger, logger.RequestFields(uuid.NewString(), req.JobQuery, location)...)
	log.Info("matching request", zap.Int("num_jobs", numJobs), zap.Int("top_k", topK), zap.Bool("use_cache", req.UseCache))

	result := &Result{
		Matches:  []matching.Match{},
		Query:    req.JobQuery,
		Location: location,
		Warnings: []string{},
	}

	jobs, cacheUsed, err := p.jobs(ctx, req.JobQuery, location, numJobs, req.UseCache, result)
	if err != nil {
		return nil, err
	}
	result.CacheUsed = cacheUsed
	result.JobsFetched = len(jobs)
	result.Jobs = jobs

	if len(jobs) == 0 {
		result.ErrorMessage = fmt.Sprintf("No jobs found for '%s' in '%s'", req.JobQuery, location)
		log.Info("no jobs found")
		return result, nil
	}

	log.Debug("fetched batch", zap.Any("summary", filtering.Stats(jobs, p.opts.QualityWeights)))

	constraints := req.Constraints
	minScore := constraints.MinMatchScore
	jobs, err = filtering.ApplySteps(ctx, p.filters(), jobs, nil, constraints, p.opts.QualityWeights, log)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		log.Info("every job was filtered out")
		return result, nil
	}

	retrieved := p.retrieve(ctx, req.ResumeText, jobs, topK, result, log)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := p.engine.Match(ctx, req.ResumeText, retrieved)
	if minScore > 0 {
		kept := matches[:0]
		for _, m := range matches {
			if m.MatchScore >= minScore {
				kept = append(kept, m)
			}
		}
		matches = kept
	}

	result.Matches = append(result.Matches, matches...)
	result.TotalMatches = len(result.Matches)

	log.Info("matched jobs", zap.Int("fetched", result.JobsFetched), zap.Int("matches", result.TotalMatches), zap.Strings("warnings", result.Warnings))
	return result, nil
}

// jobs returns postings from the cache or the source. A failed fetch is
// reported as a warning and yields no jobs.
func (p *Pipeline) jobs(ctx context.Context, query, location string, limit int, useCache bool, result *Result) ([]job.Job, bool, error) {
	if useCache {
		cached, ok, err := p.cache.Get(ctx, query, location)
		switch {
		case err != nil:
			p.logger.Warn("cache read failed", zap.Error(err))
		case ok && len(cached) > 0:
			p.logger.Info("cache hit", zap.Int("count", len(cached)))
			return cached, true, nil
		}
	}

	jobs, err := p.source.Fetch(ctx, query, location, limit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		p.logger.Error("job fetch failed", zap.Error(err))
		result.Warnings = append(result.Warnings, "Job search failed: "+err.Error())
		return nil, false, nil
	}

	if useCache && len(jobs) > 0 {
		if err := p.cache.Set(ctx, query, location, jobs); err != nil {
			p.logger.Warn("cache write failed", zap.Error(err))
		}
	}
	return jobs, false, nil
}

// retrieve indexes the batch and ranks it against the resume. Ranked hits
// come first; jobs the index cannot rank follow unranked in batch order, up
// to topK in total.
func (p *Pipeline) retrieve(ctx context.Context, resume string, jobs []job.Job, topK int, result *Result, log *zap.Logger) []matching.Retrieved {
	indexed := true
	if _, err := p.index.Add(ctx, jobs); err != nil {
		log.Warn("indexing failed", zap.Error(err))
		result.Warnings = append(result.Warnings, warnIndexing)
		indexed = false
	}

	n := min(topK, len(jobs))
	batch := job.FromSlice(jobs)
	hits, err := p.index.Search(ctx, resume, n, vectorindex.Within(batch.IDs()))
	if err != nil {
		log.Error("search failed", zap.Error(err))
		hits = nil
	}

	out := make([]matching.Retrieved, 0, n)
	seen := make(map[string]struct{}, n)
	for _, h := range hits {
		// Hits may predate a failed Add; the fetched posting is authoritative.
		j := h.Job
		if current := batch.FindByID(h.Job.ID); current != nil {
			j = *current
		}
		seen[j.ID] = struct{}{}
		out = append(out, matching.Retrieved{Job: j, SemanticScore: h.Score, HasSemantic: true})
	}
	log.Debug("retrieved jobs", zap.Int("ranked", len(out)))

	if (err == nil && indexed) || len(out) >= n {
		return out
	}

	result.Warnings = append(result.Warnings, warnSearch)
	for _, j := range jobs {
		if len(out) >= n {
			break
		}
		if _, ok := seen[j.ID]; ok && j.ID != "" {
			continue
		}
		if j.ID != "" {
			seen[j.ID] = struct{}{}
		}
		out = append(out, matching.Retrieved{Job: j})
	}
	return out
}

// Warm fetches postings and indexes them without matching.
func (p *Pipeline) Warm(ctx context.Context, query, location string, num int) (int, error) {
	if strings.TrimSpace(query) == "" {
		return 0, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(location) == "" {
		location = p.opts.Location
	}
	if num <= 0 {
		num = p.opts.NumJobs
	}

	jobs, err := p.source.Fetch(ctx, query, location, jobsource.ClampLimit(num, p.source.MaxLimit()))
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	if err := p.cache.Set(ctx, query, location, jobs); err != nil {
		p.logger.Warn("cache write failed", zap.Error(err))
	}
	return p.index.Add(ctx, jobs)
}

func (p *Pipeline) Stats() vectorindex.Stats {
	return p.index.Stats()
}

func (p *Pipeline) ClearIndex(ctx context.Context) error {
	if err := p.index.Clear(ctx); err != nil {
		return err
	}
	p.logger.Info("vector index cleared")
	return nil
}

func (p *Pipeline) ClearCache(ctx context.Context) error {
	if err := p.cache.Clear(ctx); err != nil {
		return err
	}
	p.logger.Info("job cache cleared")
	return nil
}
