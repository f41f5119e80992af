package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard interactively builds a Config and saves it to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to docsynth! Let's configure your document workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "groq", "anthropic", "google", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	preset := GetPreset(cfg.Provider)
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: preset.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.EmbeddingProvider = preset.EmbeddingProvider
	cfg.EmbeddingModel = preset.EmbeddingModel
	cfg.EmbeddingDimension = preset.EmbeddingDimension

	storePrompt := promptui.Select{
		Label: "Select vector store",
		Items: []string{
			"chromem - embedded, persisted under the data directory",
			"qdrant  - external Qdrant server",
		},
	}
	storeIdx, _, err := storePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("vector store selection: %w", err)
	}
	if storeIdx == 1 {
		cfg.VectorStore.Type = VectorStoreQdrant
		urlPrompt := promptui.Prompt{
			Label:   "Qdrant URL",
			Default: cfg.VectorStore.Qdrant.URL,
		}
		if cfg.VectorStore.Qdrant.URL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("qdrant url: %w", err)
		}
	}

	dataPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	includePrompt := promptui.Prompt{
		Label:   "Ingest include patterns (comma-separated globs)",
		Default: strings.Join(cfg.Ingest.Include, ","),
	}
	includeStr, err := includePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	if include := splitAndTrim(includeStr); len(include) > 0 {
		cfg.Ingest.Include = include
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, p := range []ProviderType{cfg.Provider, cfg.EmbeddingProvider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment (or .env) before running docsynth.\n", envVar)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
