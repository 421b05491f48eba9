package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/jobrag/internal/advisor"
	"github.com/spigell/jobrag/internal/ai"
	"github.com/spigell/jobrag/internal/ai/claude"
	"github.com/spigell/jobrag/internal/ai/gemini"
	"github.com/spigell/jobrag/internal/explain"
	"github.com/spigell/jobrag/internal/headhunter"
	"github.com/spigell/jobrag/internal/jobcache"
	"github.com/spigell/jobrag/internal/jobsource"
	"github.com/spigell/jobrag/internal/jobsource/serpapi"
	"github.com/spigell/jobrag/internal/matching"
	"github.com/spigell/jobrag/internal/pipeline"
	"github.com/spigell/jobrag/internal/secrets"
	"github.com/spigell/jobrag/internal/skills"
	"github.com/spigell/jobrag/internal/vectorindex"
)

const (
	providerNone    = "none"
	embedderHash    = "hash"
	adviceMaxTokens = 1500
)

// services holds everything a command needs, constructed once.
type services struct {
	extractor *skills.Extractor
	pipeline  *pipeline.Pipeline
	advisor   *advisor.Advisor
	closers   []io.Closer
	logger    *zap.Logger
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn("closing resource", zap.Error(err))
		}
	}
}

// geminiClient is created on first use and shared by the generator and the embedder.
type geminiClient struct {
	cfg    *gemini.Config
	client *genai.Client
	err    error
	done   bool
}

func (g *geminiClient) get(ctx context.Context) (*genai.Client, error) {
	if !g.done {
		g.client, g.err = gemini.NewClient(ctx, g.cfg)
		g.done = true
	}
	return g.client, g.err
}

func newServices(ctx context.Context, config *Config, logger *zap.Logger) (*services, error) {
	s := &services{logger: logger}
	extractor := newExtractor(config.Skills)
	s.extractor = extractor

	source, err := newSource(config.Source, extractor, logger)
	if err != nil {
		return nil, fmt.Errorf("building job source: %w", err)
	}

	cache, closer, err := jobcache.Open(ctx, &config.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("opening job cache: %w", err)
	}
	s.closers = append(s.closers, closer)

	gc := &geminiClient{cfg: &config.LLM.Gemini}

	embedder, err := newEmbedder(ctx, config.Index.Embedder, gc, config, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	index, err := vectorindex.Open(&config.Index, embedder, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	s.closers = append(s.closers, index)

	generator, err := newGenerator(ctx, config.LLM, gc, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("building llm generator: %w", err)
	}

	explainer := explain.New(generator, config.Match.Explain, logger)
	engine := matching.New(extractor, explainer, config.Match.Weights, config.Match.Thresholds, logger)

	s.pipeline, err = pipeline.New(pipeline.Deps{
		Source: source,
		Cache:  cache,
		Index:  index,
		Engine: engine,
		Logger: logger,
	}, pipeline.Options{
		Location:        config.Source.Location,
		NumJobs:         config.Source.NumJobs,
		TopK:            config.Source.TopK,
		QualityWeights:  config.Filter.Quality,
		DisabledFilters: config.Filter.Disabled,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	s.advisor = advisor.New(adviceGenerator(generator), extractor, logger)

	return s, nil
}

func newExtractor(cfg SkillsConfig) *skills.Extractor {
	opts := []skills.Option{skills.WithAliases(cfg.Aliases)}
	if cfg.Sensitivity != "" {
		opts = append(opts, skills.WithSensitivity(skills.Sensitivity(strings.ToLower(cfg.Sensitivity))))
	}
	if cfg.Limit > 0 {
		opts = append(opts, skills.WithLimit(cfg.Limit))
	}
	return skills.New(opts...)
}

func newSource(cfg SourceConfig, extractor *skills.Extractor, logger *zap.Logger) (jobsource.Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", serpapi.Name:
		return serpapi.New(&cfg.SerpAPI, extractor, logger)
	case headhunter.Name:
		return headhunter.New(&cfg.HeadHunter, extractor, logger), nil
	default:
		return nil, fmt.Errorf("unsupported job source: %s", cfg.Provider)
	}
}

// newGenerator returns nil when no provider is usable; explanations and
// advice then use their deterministic fallbacks.
func newGenerator(ctx context.Context, cfg LLMConfig, gc *geminiClient, logger *zap.Logger) (ai.Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case providerNone:
		logger.Info("llm disabled, using templated explanations")
		return nil, nil
	case claude.Provider:
		return claude.NewGenerator(&cfg.Claude, logger)
	case gemini.Provider:
		client, err := gc.get(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewGenerator(client, gc.cfg, logger)
	case "":
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}

	gen, err := claude.NewGenerator(&cfg.Claude, logger)
	if err == nil {
		return gen, nil
	}
	if !isNotConfigured(err) {
		return nil, err
	}

	client, err := gc.get(ctx)
	if err == nil {
		return gemini.NewGenerator(client, gc.cfg, logger)
	}
	if !isNotConfigured(err) {
		return nil, err
	}

	logger.Warn("no llm api key configured, using templated explanations",
		zap.String("hint", "set ANTHROPIC_API_KEY or GEMINI_API_KEY"),
	)
	return nil, nil
}

func newEmbedder(ctx context.Context, kind string, gc *geminiClient, config *Config, logger *zap.Logger) (vectorindex.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case embedderHash:
		return vectorindex.NewHashEmbedder(config.Index.HashDimensions), nil
	case gemini.Provider:
		client, err := gc.get(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewEmbedder(client, gc.cfg, logger)
	case "":
	default:
		return nil, fmt.Errorf("unsupported embedder: %s", kind)
	}

	client, err := gc.get(ctx)
	if err == nil {
		return gemini.NewEmbedder(client, gc.cfg, logger)
	}
	if !isNotConfigured(err) {
		return nil, err
	}

	logger.Warn("no gemini api key configured, using hashed embeddings")
	return vectorindex.NewHashEmbedder(config.Index.HashDimensions), nil
}

// adviceGenerator gives claude room for a full advice reply.
func adviceGenerator(g ai.Generator) ai.Generator {
	if c, ok := g.(*claude.Generator); ok {
		return c.WithMaxTokens(adviceMaxTokens)
	}
	return g
}

// isNotConfigured reports a secret that no source provides, as opposed to
// one that is configured but unreadable.
func isNotConfigured(err error) bool {
	return errors.Is(err, secrets.ErrNotConfigured)
}
