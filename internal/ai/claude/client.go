package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/logger"
	"github.com/spigell/jobrag/internal/secrets"
	"github.com/spigell/jobrag/internal/utils"
)

const (
	Provider = "anthropic"

	defaultModel        = "claude-3-haiku-20240307"
	defaultMaxTokens    = 300
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 2
	defaultMaxLogLength = 200
)

// Config is the anthropic section of the llm config.
type Config struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	BaseURL      string        `mapstructure:"base-url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max-tokens"`
	Temperature  float64       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max-retries"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Generator calls the Anthropic Messages API.
type Generator struct {
	messages    messageCreator
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
	maxLogLen   int
	logger      *zap.Logger
}

func NewGenerator(cfg *Config, log *zap.Logger) (*Generator, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "anthropic api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   []string{"ANTHROPIC_API_KEY"},
	})
	if err != nil {
		return nil, err
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(retries),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	client := anthropic.NewClient(opts...)
	return newGenerator(&client.Messages, cfg, log), nil
}

func newGenerator(messages messageCreator, cfg *Config, log *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Generator{
		messages:    messages,
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: cfg.Temperature,
		timeout:     timeout,
		maxLogLen:   maxLogLen,
		logger:      logger.WithCommonFields(log, Provider, model),
	}
}

// WithMaxTokens returns a copy of g with a different output budget.
func (g *Generator) WithMaxTokens(n int) *Generator {
	clone := *g
	if n > 0 {
		clone.maxTokens = int64(n)
	}
	return &clone
}

func (g *Generator) Model() string { return g.model }

// Generate sends one user message and returns the concatenated text blocks of the reply.
func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system = strings.TrimSpace(system); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if g.temperature > 0 {
		params.Temperature = anthropic.Float(g.temperature)
	}

	log := logger.OrNop(g.logger)
	log.Debug("anthropic messages request",
		zap.Int64("max_tokens", g.maxTokens),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	resp, err := g.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("anthropic api returned empty response")
	}

	log.Debug("anthropic messages response",
		zap.String("stop_reason", string(resp.StopReason)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)
	return output, nil
}
