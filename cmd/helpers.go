package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ziadkadry99/docsynth/internal/audit"
	"github.com/ziadkadry99/docsynth/internal/config"
	"github.com/ziadkadry99/docsynth/internal/db"
	"github.com/ziadkadry99/docsynth/internal/documents"
	"github.com/ziadkadry99/docsynth/internal/embeddings"
	"github.com/ziadkadry99/docsynth/internal/ingest"
	"github.com/ziadkadry99/docsynth/internal/llm"
	"github.com/ziadkadry99/docsynth/internal/logging"
	"github.com/ziadkadry99/docsynth/internal/research"
	"github.com/ziadkadry99/docsynth/internal/vectordb"
)

const (
	llmMaxRetries = 3
	llmRetryDelay = 2 * time.Second
)

// app bundles the components shared by the serve, mcp, ingest, query,
// themes and docs commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *db.DB
	store    *documents.Store
	activity *audit.Store
	index    *vectordb.Index
	embedder embeddings.Embedder
	research *research.Service
	ingest   *ingest.Pipeline
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docsynth init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs always go to stderr so that
// stdout stays free for command output and the MCP protocol.
func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger := logging.New(os.Stderr, logging.Options{Level: level, Format: cfg.Log.Format})
	slog.SetDefault(logger)
	return logger
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	dim := cfg.EmbeddingDimension
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, os.Getenv("OPENAI_BASE_URL"), cfg.EmbeddingModel, dim), nil
	case config.ProviderGoogle:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderGoogle))
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for Google embeddings")
		}
		return embeddings.NewGoogleEmbedder(apiKey, cfg.EmbeddingModel, dim), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, dim, llm.OllamaHost()), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}

// createLLMProviderFromConfig creates an LLM provider based on config
// settings, wrapped with rate limiting and retries on transient errors.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	provider = llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM)
	return llm.NewRetryProvider(provider, llmMaxRetries, llmRetryDelay), nil
}

func createBackendFromConfig(cfg *config.Config, embedder embeddings.Embedder) (vectordb.Backend, error) {
	switch cfg.VectorStore.Type {
	case config.VectorStoreQdrant:
		q := cfg.VectorStore.Qdrant
		return vectordb.NewQdrantBackend(vectordb.QdrantConfig{
			URL:     q.URL,
			APIKey:  q.APIKey,
			Timeout: time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	default:
		return vectordb.NewChromemBackend(cfg.VectorDir(), embeddings.ToChromemFunc(embedder, cfg.EmbeddingDimension))
	}
}

// newApp wires storage, indexing and, when withLLM is set, the research
// pipeline. Commands that never call a language model (ingest, docs) pass
// false so that no LLM API key is needed for them.
func newApp(ctx context.Context, withLLM bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	backend, err := createBackendFromConfig(cfg, embedder)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	index := vectordb.NewIndex(backend, vectordb.Options{
		Collection: cfg.VectorStore.Collection,
		Dimension:  cfg.EmbeddingDimension,
		BatchSize:  cfg.VectorStore.BatchSize,
		Logger:     logger,
	})
	if err := index.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	store := documents.NewStore(database)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		store:    store,
		activity: audit.NewStore(database),
		index:    index,
		embedder: embedder,
		ingest: ingest.NewPipeline(ingest.Options{
			Store:     store,
			Index:     index,
			Embedder:  embedder,
			UploadDir: cfg.UploadDir(),
			Chunking: ingest.ChunkOptions{
				MaxWords: cfg.Ingest.MaxWordsPerChunk,
				Overlap:  cfg.Ingest.WordOverlap,
			},
			Logger: logger,
		}),
	}

	if withLLM {
		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
		dim := cfg.EmbeddingDimension
		a.research = research.NewService(research.ServiceConfig{
			Documents:  store,
			Retriever:  research.NewRetriever(embedder, index, dim, logger),
			Extraction: research.NewExtractionStage(research.NewLLMExtractor(provider, logger), cfg.MaxConcurrency, logger),
			Synthesizer: research.NewSynthesizer(
				research.NewClusterer(embedder, dim, logger),
				research.NewLLMSummarizer(provider),
				logger,
			),
			DefaultTopK: cfg.TopKPerDoc,
			Logger:      logger,
		})
	}

	return a, nil
}

// record appends a CLI entry to the activity log. The log is advisory, so a
// failure only produces a warning.
func (a *app) record(ctx context.Context, e audit.Entry) {
	e.ActorType = audit.ActorCLI
	if err := a.activity.Log(ctx, e); err != nil {
		a.logger.Warn("recording activity failed", "action", e.Action, "error", err)
	}
}

func (a *app) Close() error {
	return a.db.Close()
}
