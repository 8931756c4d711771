package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"patient-rag/internal/llmservice"
	"patient-rag/internal/rag"
	"patient-rag/internal/tui"
)

func newTuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive patient question answering",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			patients, err := tui.ListPatients(cfg.DocumentsDir)
			if err != nil {
				return fmt.Errorf("list patients: %w", err)
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
			program := tea.NewProgram(tui.New(responder, patients), tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}
}
