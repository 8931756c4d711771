package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"patient-rag/internal/config"
	"patient-rag/internal/embedding"
	"patient-rag/internal/helper"
	"patient-rag/internal/vectorstore"
	"patient-rag/internal/vectorstore/chromemdb"
	"patient-rag/internal/vectorstore/postgres"
)

var (
	configPath string
	verbose    bool
)

// NewRootCmd wires the patient-rag command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "patient-rag",
		Short:         "Retrieval-augmented question answering over patient records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

			// secrets come from the environment; .env is a convenience
			if err := godotenv.Load(); err != nil {
				log.Debug().Msg("No .env file found")
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "Path to the config file")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(newIngestCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newTuiCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.Debug().Str("documents_dir", cfg.DocumentsDir).Str("store", cfg.Store.Type).Msg("Loaded config")
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.Store.Type {
	case "chromem":
		if err := helper.CreateFolder(cfg.Store.Chromem.Path); err != nil {
			return nil, err
		}
		return chromemdb.NewManager(cfg.Store.Chromem.Path, cfg.Store.Chromem.Collection, false)
	case "postgres":
		store, err := postgres.Connect(cfg.Store.Postgres.DSN, cfg.RAG.VectorDim, cfg.Store.Postgres.Debug)
		if err != nil {
			return nil, err
		}
		if err := store.InitSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
}

func newEmbeddingService(ctx context.Context, cfg *config.Config) (*embedding.Service, error) {
	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return embedding.NewService(
		embedder,
		cfg.RAG.VectorDim,
		cfg.RAG.EmbedWorkers,
		time.Duration(cfg.RAG.TimeoutSecs)*time.Second,
	), nil
}
