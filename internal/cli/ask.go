package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"patient-rag/internal/llmservice"
	"patient-rag/internal/rag"
)

func newAskCmd() *cobra.Command {
	var patient, query string

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask a one-shot question about a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			embedder, err := newEmbeddingService(ctx, cfg)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open vector store: %w", err)
			}
			defer store.Close()

			chat, err := llmservice.NewChatModel(ctx, &cfg.ChatLLM)
			if err != nil {
				return fmt.Errorf("init chat model: %w", err)
			}

			responder := rag.NewRAG(store, embedder, chat, cfg.RAG.TopK)
			response, err := responder.Query(ctx, patient, query)
			if err != nil {
				return err
			}

			fmt.Printf("Query:\n%s\n\n", response.Query)
			if response.Source != "" {
				fmt.Printf("Sources:\n%s\n\n", response.Source)
			}
			fmt.Printf("Assistant:\n%s\n", response.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&patient, "patient", "", "Patient name (document basename)")
	cmd.Flags().StringVar(&query, "query", "", "Question to answer")
	_ = cmd.MarkFlagRequired("patient")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
