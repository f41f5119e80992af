package llm

const groqBaseURL = "https://api.groq.com/openai/v1"

// NewGroqProvider creates a provider for Groq's OpenAI-compatible API.
func NewGroqProvider(apiKey, model string) *OpenAIProvider {
	return newOpenAICompatible("groq", apiKey, groqBaseURL, model)
}
