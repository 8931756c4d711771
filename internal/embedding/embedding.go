package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"patient-rag/internal/config"
	"patient-rag/internal/models"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNoEmbedding wraps every failure of the embedding service, including
// timeouts and wrong-dimension responses.
var ErrNoEmbedding = fmt.Errorf("no embedding produced")

// NewEmbedder creates an embedder for the configured provider.
func NewEmbedder(ctx context.Context, llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	switch llmConfig.Provider {
	case "googleai":
		return NewGoogleEmbedder(ctx, llmConfig)
	case "openai":
		return NewOpenAIEmbedder(llmConfig)
	case "ollama":
		return NewOllamaEmbedder(llmConfig)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", llmConfig.Provider)
	}
}

// NewGoogleEmbedder creates a Gemini-backed embedder.
func NewGoogleEmbedder(ctx context.Context, llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(llmConfig.Key),
		googleai.WithDefaultEmbeddingModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// NewOpenAIEmbedder creates an embedder against any OpenAI-compatible endpoint.
func NewOpenAIEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// NewOllamaEmbedder creates an embedder against a local ollama server.
func NewOllamaEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
	if llmConfig.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// Service enforces the pipeline's embedding contract over any embedder:
// per-call timeout, fixed dimensionality, and failure isolation during
// ingestion.
type Service struct {
	embedder embeddings.Embedder
	dim      int
	timeout  time.Duration
	workers  int
}

func NewService(embedder embeddings.Embedder, dim, workers int, timeout time.Duration) *Service {
	if workers <= 0 {
		workers = 1
	}
	return &Service{embedder: embedder, dim: dim, timeout: timeout, workers: workers}
}

// EmbedQuery embeds a single text and validates its dimensionality. Errors
// propagate; the query path must not search with a missing vector.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEmbedding, err)
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: expected dimension %d, got %d", ErrNoEmbedding, s.dim, len(vector))
	}
	return vector, nil
}

// EmbedChunks embeds every chunk with bounded concurrency, preserving order.
// A failed chunk is logged and left with a nil vector so the caller can skip
// that record; the batch itself never fails.
func (s *Service) EmbedChunks(ctx context.Context, chunks []models.Chunk) [][]float32 {
	vectors := make([][]float32, len(chunks))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i := range chunks {
		i := i
		g.Go(func() error {
			vector, err := s.EmbedQuery(ctx, chunks[i].Text)
			if err != nil {
				log.Warn().Err(err).
					Str("source", chunks[i].Source).
					Int("chunk", chunks[i].Index).
					Msg("Embedding failed, skipping chunk")
				return nil
			}
			vectors[i] = vector
			return nil
		})
	}
	_ = g.Wait()

	return vectors
}
