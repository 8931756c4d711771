package llmservice

import (
	"context"
	"fmt"
	"strings"

	"patient-rag/internal/config"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewChatModel builds the chat-completion client for the configured provider.
func NewChatModel(ctx context.Context, llmConfig *config.LLMConfig) (llms.Model, error) {
	switch llmConfig.Provider {
	case "googleai":
		return googleai.New(ctx,
			googleai.WithAPIKey(llmConfig.Key),
			googleai.WithDefaultModel(llmConfig.Model),
		)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		return openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown chat provider %q", llmConfig.Provider)
	}
}

// GenerateContent sends the messages to the model and returns the first
// candidate's text.
func GenerateContent(ctx context.Context, model llms.Model, messages []llms.MessageContent) (string, error) {
	res, err := model.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("chat model returned no candidates")
	}
	return res.Choices[0].Content, nil
}
