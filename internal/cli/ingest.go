package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"patient-rag/internal/chunker"
	"patient-rag/internal/helper"
	"patient-rag/internal/ingest"
	"patient-rag/internal/vectorstore"
)

func newIngestCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index every supported document in the documents directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.DocumentsDir
			}

			ch, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
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

			writer := vectorstore.NewBatchWriter(store, cfg.RAG.BatchSize)
			ing := ingest.New(ch, embedder, writer, cfg.RAG.PreviewChars)

			statuses, err := ing.Run(ctx, dir)
			if err != nil {
				return err
			}
			if verbose {
				helper.PrettyPrint(statuses)
			}

			failed := 0
			for _, st := range statuses {
				if st.Err != nil {
					failed++
					fmt.Printf("FAIL  %-30s %v\n", st.File, st.Err)
					continue
				}
				fmt.Printf("OK    %-30s patient=%s chunks=%d indexed=%d\n", st.File, st.Patient, st.Chunks, st.Indexed)
			}
			if len(statuses) == 0 {
				log.Warn().Str("dir", dir).Msg("No supported documents found")
				return nil
			}
			if failed == len(statuses) {
				return fmt.Errorf("all %d documents failed to ingest", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Documents directory (defaults to the configured one)")
	return cmd
}
