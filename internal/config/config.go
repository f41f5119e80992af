package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override config keys.
// Nested keys use a double underscore: DOCSYNTH_VECTOR_STORE__TYPE.
const EnvPrefix = "DOCSYNTH_"

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = ".docsynth.yml"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOCSYNTH_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps DOCSYNTH_VECTOR_STORE__BATCH_SIZE to vector_store.batch_size.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderGroq:      true,
	ProviderGoogle:    true,
	ProviderOllama:    true,
}

// Groq and Anthropic expose no embedding endpoint.
var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderGoogle: true,
	ProviderOllama: true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of openai, groq, anthropic, google, ollama", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if !validEmbeddingProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q: must be one of openai, google, ollama", c.EmbeddingProvider)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding_dimension must be positive")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be non-negative")
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("rate_limit_rpm must be non-negative")
	}
	if c.TopKPerDoc <= 0 {
		return fmt.Errorf("top_k_per_doc must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.VectorStore.Type {
	case VectorStoreChromem:
	case VectorStoreQdrant:
		if c.VectorStore.Qdrant.URL == "" {
			return fmt.Errorf("vector_store.qdrant.url is required for the qdrant backend")
		}
	default:
		return fmt.Errorf("invalid vector_store.type %q: must be chromem or qdrant", c.VectorStore.Type)
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("vector_store.collection is required")
	}
	if c.VectorStore.BatchSize <= 0 {
		return fmt.Errorf("vector_store.batch_size must be positive")
	}

	if c.Ingest.MaxWordsPerChunk <= 0 {
		return fmt.Errorf("ingest.max_words_per_chunk must be positive")
	}
	if c.Ingest.WordOverlap < 0 || c.Ingest.WordOverlap >= c.Ingest.MaxWordsPerChunk {
		return fmt.Errorf("ingest.word_overlap must be in [0, max_words_per_chunk)")
	}

	if c.Log.Level != "" && !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if c.Log.Format != "" && c.Log.Format != "pretty" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q: must be pretty or json", c.Log.Format)
	}

	return nil
}

// DBPath is the location of the document registry database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "docsynth.db")
}

// VectorDir is where the embedded vector store persists its data.
func (c *Config) VectorDir() string {
	return filepath.Join(c.DataDir, "vectordb")
}

// UploadDir is where uploaded source files are kept.
func (c *Config) UploadDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGroq:
		return "GROQ_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}
