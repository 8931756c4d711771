package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LLMConfig selects and configures one language-model endpoint.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Key       string `yaml:"-"`
}

// RAGConfig holds the pipeline tunables.
type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
	BatchSize    int `yaml:"batch_size"`
	VectorDim    int `yaml:"vector_dim"`
	EmbedWorkers int `yaml:"embed_workers"`
	PreviewChars int `yaml:"preview_chars"`
	TimeoutSecs  int `yaml:"timeout_secs"`
}

type ChromemConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

type PostgresConfig struct {
	DSNEnv string `yaml:"dsn_env"`
	DSN    string `yaml:"-"`
	Debug  bool   `yaml:"debug"`
}

// StoreConfig selects the vector index backend.
type StoreConfig struct {
	Type     string         `yaml:"type"`
	Chromem  ChromemConfig  `yaml:"chromem"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type Config struct {
	DocumentsDir string      `yaml:"documents_dir"`
	RAG          RAGConfig   `yaml:"rag"`
	EmbedLLM     LLMConfig   `yaml:"embedding"`
	ChatLLM      LLMConfig   `yaml:"chat"`
	Store        StoreConfig `yaml:"store"`
}

// LoadConfig reads the yaml config, resolves secrets from the environment
// and validates the result. The file is unmarshalled over a fully defaulted
// config, so an explicit zero (say chunk_overlap: 0) is kept while an absent
// key falls back to its default. A missing file yields defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.ChatLLM.APIKeyEnv == "" {
		cfg.ChatLLM.APIKeyEnv = cfg.EmbedLLM.APIKeyEnv
	}
	resolveSecrets(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaultConfig leaves ChatLLM.APIKeyEnv empty; it mirrors the embedding
// key env after unmarshalling unless the file sets its own.
func defaultConfig() Config {
	return Config{
		DocumentsDir: "./documents",
		RAG: RAGConfig{
			ChunkSize:    800,
			ChunkOverlap: 100,
			TopK:         3,
			BatchSize:    100,
			VectorDim:    768,
			EmbedWorkers: 4,
			PreviewChars: 500,
			TimeoutSecs:  30,
		},
		EmbedLLM: LLMConfig{
			Provider:  "googleai",
			Model:     "gemini-embedding-001",
			APIKeyEnv: "API_KEY_GOOGLE",
		},
		ChatLLM: LLMConfig{
			Provider: "googleai",
			Model:    "gemini-2.5-pro",
		},
		Store: StoreConfig{
			Type:    "chromem",
			Chromem: ChromemConfig{Path: "./chromemdb", Collection: "patient_records"},
			Postgres: PostgresConfig{
				DSNEnv: "POSTGRES_DSN",
			},
		},
	}
}

func resolveSecrets(cfg *Config) {
	cfg.EmbedLLM.Key = os.Getenv(cfg.EmbedLLM.APIKeyEnv)
	cfg.ChatLLM.Key = os.Getenv(cfg.ChatLLM.APIKeyEnv)
	cfg.Store.Postgres.DSN = os.Getenv(cfg.Store.Postgres.DSNEnv)
}

// Validate fails fast on anything the pipeline cannot recover from later.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative, got %d", c.RAG.ChunkOverlap)
	}
	// overlap >= chunk size would make the window step non-positive and
	// loop forever, so it is rejected instead of clamped
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.RAG.TopK <= 0 || c.RAG.BatchSize <= 0 || c.RAG.VectorDim <= 0 {
		return fmt.Errorf("top_k, batch_size and vector_dim must be positive")
	}
	if needsKey(c.EmbedLLM.Provider) && c.EmbedLLM.Key == "" {
		return fmt.Errorf("missing embedding API key: set %s in the environment or .env", c.EmbedLLM.APIKeyEnv)
	}
	if needsKey(c.ChatLLM.Provider) && c.ChatLLM.Key == "" {
		return fmt.Errorf("missing chat API key: set %s in the environment or .env", c.ChatLLM.APIKeyEnv)
	}
	switch c.Store.Type {
	case "chromem":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("missing postgres DSN: set %s in the environment or .env", c.Store.Postgres.DSNEnv)
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	return nil
}

// ollama runs locally and needs no credential
func needsKey(provider string) bool {
	return provider != "ollama"
}
