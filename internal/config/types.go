package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGroq      ProviderType = "groq"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
)

// VectorStoreType selects the vector index backend.
type VectorStoreType string

const (
	VectorStoreChromem VectorStoreType = "chromem"
	VectorStoreQdrant  VectorStoreType = "qdrant"
)

// Config is the top-level docsynth configuration, corresponding to .docsynth.yml.
type Config struct {
	Provider           ProviderType      `yaml:"provider" koanf:"provider"`
	Model              string            `yaml:"model" koanf:"model"`
	EmbeddingProvider  ProviderType      `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel     string            `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimension int               `yaml:"embedding_dimension" koanf:"embedding_dimension"`
	DataDir            string            `yaml:"data_dir" koanf:"data_dir"`
	MaxConcurrency     int               `yaml:"max_concurrency" koanf:"max_concurrency"`
	RateLimitRPM       int               `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	TopKPerDoc         int               `yaml:"top_k_per_doc" koanf:"top_k_per_doc"`
	Server             ServerConfig      `yaml:"server" koanf:"server"`
	VectorStore        VectorStoreConfig `yaml:"vector_store" koanf:"vector_store"`
	Ingest             IngestConfig      `yaml:"ingest" koanf:"ingest"`
	Log                LogConfig         `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	Type       VectorStoreType `yaml:"type" koanf:"type"`
	Collection string          `yaml:"collection" koanf:"collection"`
	BatchSize  int             `yaml:"batch_size" koanf:"batch_size"`
	Qdrant     QdrantConfig    `yaml:"qdrant" koanf:"qdrant"`
}

// QdrantConfig holds connection settings for a Qdrant server.
type QdrantConfig struct {
	URL         string `yaml:"url" koanf:"url"`
	APIKey      string `yaml:"api_key,omitempty" koanf:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs" koanf:"timeout_secs"`
}

// IngestConfig controls how files are discovered and chunked.
type IngestConfig struct {
	Include          []string `yaml:"include" koanf:"include"`
	Exclude          []string `yaml:"exclude" koanf:"exclude"`
	MaxWordsPerChunk int      `yaml:"max_words_per_chunk" koanf:"max_words_per_chunk"`
	WordOverlap      int      `yaml:"word_overlap" koanf:"word_overlap"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
