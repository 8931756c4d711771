package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"patient-rag/internal/embedding"
	"patient-rag/internal/models"
)

// fakeEmbedder implements embeddings.Embedder.
type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

// fakeStore implements vectorstore.Store and records the query it received.
type fakeStore struct {
	matches    []models.QueryMatch
	err        error
	lastTopK   int
	lastFilter map[string]string
	queried    bool
}

func (f *fakeStore) Upsert(context.Context, []models.VectorRecord) error { return nil }

func (f *fakeStore) Query(_ context.Context, _ []float32, topK int, filter map[string]string) ([]models.QueryMatch, error) {
	f.queried = true
	f.lastTopK = topK
	f.lastFilter = filter
	return f.matches, f.err
}

func (f *fakeStore) Close() error { return nil }

// fakeChat implements llms.Model and records the prompt it received.
type fakeChat struct {
	answer   string
	err      error
	messages []llms.MessageContent
	called   bool
}

func (f *fakeChat) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.called = true
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.answer}},
	}, nil
}

func (f *fakeChat) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return f.answer, f.err
}

func match(source, chunk, text string, score float32) models.QueryMatch {
	return models.QueryMatch{
		ID:    source + "-chunk-" + chunk,
		Score: score,
		Metadata: map[string]string{
			models.MetaSource:  source,
			models.MetaChunk:   chunk,
			models.MetaText:    text,
			models.MetaPatient: "alice",
		},
	}
}

func newTestRAG(store *fakeStore, chat *fakeChat, embedErr error) *RAG {
	svc := embedding.NewService(&fakeEmbedder{err: embedErr}, 3, 1, time.Second)
	return NewRAG(store, svc, chat, 3)
}

func systemPrompt(t *testing.T, chat *fakeChat) string {
	t.Helper()
	require.NotEmpty(t, chat.messages)
	msg := chat.messages[0]
	require.Equal(t, llms.ChatMessageTypeSystem, msg.Role)
	part, ok := msg.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestQueryGroundsAnswerOnRetrievedHistory(t *testing.T) {
	store := &fakeStore{matches: []models.QueryMatch{
		match("alice.pdf", "0", "Diagnosed with asthma in 2019.", 0.91),
		match("alice.pdf", "3", "Prescribed salbutamol inhaler.", 0.84),
	}}
	chat := &fakeChat{answer: "The current symptoms match the 2019 asthma diagnosis."}

	responder := newTestRAG(store, chat, nil)
	resp, err := responder.Query(context.Background(), "alice", "Why am I short of breath?")
	require.NoError(t, err)

	assert.Equal(t, 3, store.lastTopK)
	assert.Equal(t, map[string]string{models.MetaPatient: "alice"}, store.lastFilter)

	prompt := systemPrompt(t, chat)
	assert.Contains(t, prompt, "alice")
	assert.Contains(t, prompt, "Diagnosed with asthma in 2019.")
	assert.Contains(t, prompt, "Prescribed salbutamol inhaler.")

	require.Len(t, chat.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeHuman, chat.messages[1].Role)

	assert.Equal(t, "The current symptoms match the 2019 asthma diagnosis.", resp.Content)
	assert.Contains(t, resp.Source, "alice.pdf (chunk 0)")
	assert.Contains(t, resp.Source, "alice.pdf (chunk 3)")
}

func TestQueryWithZeroMatchesStillBuildsCoherentPrompt(t *testing.T) {
	store := &fakeStore{}
	chat := &fakeChat{answer: "No correlation is detected."}

	responder := newTestRAG(store, chat, nil)
	resp, err := responder.Query(context.Background(), "alice", "Any history of migraines?")
	require.NoError(t, err)

	prompt := systemPrompt(t, chat)
	assert.Contains(t, prompt, models.NoHistoryContext)
	assert.Empty(t, resp.Source)
	assert.Equal(t, "No correlation is detected.", resp.Content)
}

func TestQueryShortCircuitsOnEmbeddingFailure(t *testing.T) {
	store := &fakeStore{}
	chat := &fakeChat{}

	responder := newTestRAG(store, chat, errors.New("quota exceeded"))
	_, err := responder.Query(context.Background(), "alice", "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not embed")

	// no nil vector may reach the search, and no prompt may be sent
	assert.False(t, store.queried)
	assert.False(t, chat.called)
}

func TestQuerySurfacesSearchFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("index unavailable")}
	chat := &fakeChat{}

	responder := newTestRAG(store, chat, nil)
	_, err := responder.Query(context.Background(), "alice", "question")
	require.Error(t, err)
	assert.False(t, chat.called)
}

func TestQuerySurfacesChatFailure(t *testing.T) {
	store := &fakeStore{matches: []models.QueryMatch{match("alice.pdf", "0", "text", 0.9)}}
	chat := &fakeChat{err: errors.New("model overloaded")}

	responder := newTestRAG(store, chat, nil)
	_, err := responder.Query(context.Background(), "alice", "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}
