package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/jobrag/internal/logger"
)

const (
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultDimensions     = 768
	// maxEmbedBatch is the API limit of contents per request.
	maxEmbedBatch = 100

	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

type embedContenter interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder computes dense vectors with the Gemini embedding models.
type Embedder struct {
	models     embedContenter
	model      string
	dimensions int32
	logger     *zap.Logger
}

func NewEmbedder(client *genai.Client, cfg *Config, log *zap.Logger) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	model := strings.TrimSpace(cfg.EmbeddingModel)
	if model == "" {
		model = defaultEmbeddingModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = defaultDimensions
	}

	return &Embedder{
		models:     client.Models,
		model:      model,
		dimensions: int32(dims),
		logger:     logger.WithCommonFields(log, Provider, model),
	}, nil
}

// Model names the vector space, so a dimension change invalidates stored vectors.
func (e *Embedder) Model() string {
	return fmt.Sprintf("%s-%d", e.model, e.dimensions)
}

// Embed returns one vector per document text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, taskDocument)
}

// EmbedQuery embeds a search query with the retrieval query task type.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		dims := e.dimensions
		resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
			TaskType:             task,
			OutputDimensionality: &dims,
		})
		if err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}
		if resp == nil || len(resp.Embeddings) != end-start {
			got := 0
			if resp != nil {
				got = len(resp.Embeddings)
			}
			return nil, fmt.Errorf("embed content: expected %d embeddings, got %d", end-start, got)
		}

		for _, embedding := range resp.Embeddings {
			if embedding == nil || len(embedding.Values) == 0 {
				return nil, errors.New("embed content: empty embedding")
			}
			out = append(out, embedding.Values)
		}

		logger.OrNop(e.logger).Debug("embedded batch", zap.Int("size", end-start), zap.String("task", task))
	}

	return out, nil
}
