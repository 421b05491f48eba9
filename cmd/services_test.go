package cmd

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/ai/claude"
	"github.com/spigell/jobrag/internal/ai/gemini"
	"github.com/spigell/jobrag/internal/filtering"
	"github.com/spigell/jobrag/internal/headhunter"
	"github.com/spigell/jobrag/internal/jobsource/serpapi"
	"github.com/spigell/jobrag/internal/matching"
	"github.com/spigell/jobrag/internal/secrets"
	"github.com/spigell/jobrag/internal/vectorindex"
)

func clearKeys(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SERPAPI_KEY", "SEARCHAPI_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestNewSource(t *testing.T) {
	clearKeys(t)

	src, err := newSource(SourceConfig{Provider: "HeadHunter"}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &headhunter.Client{}, src)

	src, err = newSource(SourceConfig{SerpAPI: serpapi.Config{APIKey: "key"}}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, serpapi.Name, src.Name())

	_, err = newSource(SourceConfig{Provider: serpapi.Name}, nil, zap.NewNop())
	require.ErrorIs(t, err, secrets.ErrNotConfigured)

	_, err = newSource(SourceConfig{Provider: "linkedin"}, nil, zap.NewNop())
	require.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	clearKeys(t)
	ctx := context.Background()

	gen, err := newGenerator(ctx, LLMConfig{}, &geminiClient{cfg: &gemini.Config{}}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, gen)

	gen, err = newGenerator(ctx, LLMConfig{Provider: providerNone, Claude: claude.Config{APIKey: "key"}}, &geminiClient{cfg: &gemini.Config{}}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, gen)

	gen, err = newGenerator(ctx, LLMConfig{Claude: claude.Config{APIKey: "key"}}, &geminiClient{cfg: &gemini.Config{}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &claude.Generator{}, gen)
	assert.IsType(t, &claude.Generator{}, adviceGenerator(gen))

	_, err = newGenerator(ctx, LLMConfig{Provider: gemini.Provider}, &geminiClient{cfg: &gemini.Config{}}, zap.NewNop())
	require.ErrorIs(t, err, secrets.ErrNotConfigured)

	_, err = newGenerator(ctx, LLMConfig{Provider: "openai"}, &geminiClient{cfg: &gemini.Config{}}, zap.NewNop())
	require.Error(t, err)
}

func TestNewEmbedder(t *testing.T) {
	clearKeys(t)
	ctx := context.Background()
	config := &Config{Index: vectorindex.Config{HashDimensions: 128}}

	emb, err := newEmbedder(ctx, "", &geminiClient{cfg: &gemini.Config{}}, config, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "hash-128", emb.Model())

	emb, err = newEmbedder(ctx, "HASH", &geminiClient{cfg: &gemini.Config{}}, config, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &vectorindex.HashEmbedder{}, emb)

	_, err = newEmbedder(ctx, gemini.Provider, &geminiClient{cfg: &gemini.Config{}}, config, zap.NewNop())
	require.ErrorIs(t, err, secrets.ErrNotConfigured)

	_, err = newEmbedder(ctx, "word2vec", &geminiClient{cfg: &gemini.Config{}}, config, zap.NewNop())
	require.Error(t, err)
}

func TestDefaultsDecodeIntoConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setDefaults()
	viper.Set("filter.quality.min-quality", 4.5)

	config, err := getConfig()
	require.NoError(t, err)

	want := filtering.DefaultWeights()
	want.MinQuality = 4.5
	assert.Equal(t, want, config.Filter.Quality)
	assert.Equal(t, matching.DefaultWeights(), config.Match.Weights)
	assert.Equal(t, matching.DefaultThresholds(), config.Match.Thresholds)
	assert.Equal(t, serpapi.Name, config.Source.Provider)
	assert.Equal(t, "memory", config.Cache.Backend)
}

func TestRedactedMasksKeys(t *testing.T) {
	config := &Config{}
	config.LLM.Claude.APIKey = "sk-ant-secret"
	config.Source.SerpAPI.APIKey = "serp-secret"

	safe := redacted(config)
	assert.Equal(t, "***", safe.LLM.Claude.APIKey)
	assert.Equal(t, "***", safe.Source.SerpAPI.APIKey)
	assert.Empty(t, safe.LLM.Gemini.APIKey)
	assert.Equal(t, "sk-ant-secret", config.LLM.Claude.APIKey)
}
