package config

// ProviderPreset describes the default models for a provider.
type ProviderPreset struct {
	Model              string
	EmbeddingProvider  ProviderType
	EmbeddingModel     string
	EmbeddingDimension int
}

var providerPresets = map[ProviderType]ProviderPreset{
	ProviderOpenAI: {
		Model:              "gpt-4o-mini",
		EmbeddingProvider:  ProviderOpenAI,
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDimension: 1536,
	},
	ProviderGroq: {
		Model:              "llama-3.3-70b-versatile",
		EmbeddingProvider:  ProviderOpenAI,
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDimension: 1536,
	},
	ProviderAnthropic: {
		Model:              "claude-haiku-4-5-20251001",
		EmbeddingProvider:  ProviderOpenAI,
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDimension: 1536,
	},
	ProviderGoogle: {
		Model:              "gemini-2.0-flash",
		EmbeddingProvider:  ProviderGoogle,
		EmbeddingModel:     "text-embedding-004",
		EmbeddingDimension: 768,
	},
	ProviderOllama: {
		Model:              "llama3",
		EmbeddingProvider:  ProviderOllama,
		EmbeddingModel:     "nomic-embed-text",
		EmbeddingDimension: 768,
	},
}

// DefaultExcludes are glob patterns skipped during ingestion by default.
var DefaultExcludes = []string{
	"vendor/**",
	"**/.DS_Store",
	"**/~$*",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:           ProviderOpenAI,
		Model:              "gpt-4o-mini",
		EmbeddingProvider:  ProviderOpenAI,
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDimension: 1536,
		DataDir:            ".docsynth",
		MaxConcurrency:     8,
		TopKPerDoc:         3,
		Server: ServerConfig{
			Port:            8000,
			AllowAllOrigins: true,
		},
		VectorStore: VectorStoreConfig{
			Type:       VectorStoreChromem,
			Collection: "document_chunks",
			BatchSize:  16,
			Qdrant: QdrantConfig{
				URL:         "http://localhost:6333",
				TimeoutSecs: 30,
			},
		},
		Ingest: IngestConfig{
			Include:          []string{"**/*.txt", "**/*.md"},
			Exclude:          DefaultExcludes,
			MaxWordsPerChunk: 300,
			WordOverlap:      50,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "pretty",
		},
	}
}

// GetPreset returns the default models for the given provider.
// Returns the OpenAI preset if the provider is unknown.
func GetPreset(provider ProviderType) ProviderPreset {
	if p, ok := providerPresets[provider]; ok {
		return p
	}
	return providerPresets[ProviderOpenAI]
}
