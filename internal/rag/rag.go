package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"patient-rag/internal/embedding"
	"patient-rag/internal/llmservice"
	"patient-rag/internal/models"
	"patient-rag/internal/vectorstore"
)

// RAG answers a patient-scoped question by embedding it, retrieving that
// patient's nearest chunks and grounding a chat completion on them.
type RAG struct {
	store    vectorstore.Store
	embedder *embedding.Service
	chat     llms.Model
	topK     int
}

func NewRAG(store vectorstore.Store, embedder *embedding.Service, chat llms.Model, topK int) *RAG {
	if topK <= 0 {
		topK = 3
	}
	return &RAG{store: store, embedder: embedder, chat: chat, topK: topK}
}

func (r *RAG) Query(ctx context.Context, patient, query string) (*models.PromptResponse, error) {
	// embedding failure aborts here; a missing vector must never reach the search
	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not embed the question: %w", err)
	}

	matches, err := r.store.Query(ctx, queryEmbedding, r.topK, map[string]string{
		models.MetaPatient: patient,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	log.Debug().Str("patient", patient).Int("matches", len(matches)).Msg("Retrieved history")

	var contextBlock strings.Builder
	var sources []string
	for _, match := range matches {
		contextBlock.WriteString(match.Metadata[models.MetaText])
		contextBlock.WriteString("\n\n")
		sources = append(sources, fmt.Sprintf("%s (chunk %s)", match.Metadata[models.MetaSource], match.Metadata[models.MetaChunk]))
	}
	history := strings.TrimSpace(contextBlock.String())
	if history == "" {
		history = models.NoHistoryContext
	}

	systemPrompt := fmt.Sprintf(models.SystemPromptTemplate, patient, history)
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}

	answer, err := llmservice.GenerateContent(ctx, r.chat, messages)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	return &models.PromptResponse{
		Query:   query,
		Source:  strings.Join(sources, "\n"),
		Content: answer,
	}, nil
}
