package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/docsynth/internal/llm"
	"github.com/ziadkadry99/docsynth/internal/vectordb"
)

const (
	extractTemperature = 0.0
	themeTemperature   = 0.2
	extractMaxTokens   = 512
	themeMaxTokens     = 1024
)

// LLMExtractor answers questions about chunks with a language model.
type LLMExtractor struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewLLMExtractor creates an extractor backed by provider.
func NewLLMExtractor(provider llm.Provider, logger *slog.Logger) *LLMExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMExtractor{provider: provider, logger: logger}
}

// Extract asks the model for an answer in chunk. Provider and parse failures
// are logged and reported as NoAnswer. The citation always comes from the
// chunk itself, never from the model.
func (e *LLMExtractor) Extract(ctx context.Context, question string, chunk vectordb.Chunk) (Extraction, error) {
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    llm.SystemUser(systemPrompt, extractPrompt(question, chunk)),
		MaxTokens:   extractMaxTokens,
		Temperature: extractTemperature,
		JSONMode:    true,
	})
	if err != nil {
		e.logger.Error("extract completion failed", "provider", e.provider.Name(), "doc_id", chunk.DocID, "error", err)
		return Extraction{Answer: NoAnswer}, nil
	}

	ext, err := ParseExtraction(resp.Content)
	if err != nil {
		e.logger.Error("unparseable extract response", "doc_id", chunk.DocID, "error", err)
		return Extraction{Answer: NoAnswer}, nil
	}
	if ext.IsNoAnswer() {
		return Extraction{Answer: NoAnswer}, nil
	}
	ext.Citation = FormatCitation(chunk)
	return ext, nil
}

// ParseExtraction reads an {answer, citation} object from a model reply.
// A bare NO_ANSWER reply is accepted as well.
func ParseExtraction(content string) (Extraction, error) {
	var ext Extraction
	if err := llm.DecodeJSON(content, &ext); err != nil {
		if strings.EqualFold(strings.Trim(strings.TrimSpace(content), `"`), NoAnswer) {
			return Extraction{Answer: NoAnswer}, nil
		}
		return Extraction{}, fmt.Errorf("parsing extraction: %w", err)
	}
	ext.Answer = strings.TrimSpace(ext.Answer)
	ext.Citation = strings.TrimSpace(ext.Citation)
	return ext, nil
}

// LLMSummarizer names and summarizes themes with a language model.
type LLMSummarizer struct {
	provider llm.Provider
}

// NewLLMSummarizer creates a summarizer backed by provider.
func NewLLMSummarizer(provider llm.Provider) *LLMSummarizer {
	return &LLMSummarizer{provider: provider}
}

// Summarize asks the model for a label and synthesis of snippets. Errors are
// returned so the caller can fall back.
func (s *LLMSummarizer) Summarize(ctx context.Context, snippets []SnippetRecord, themeID int, question string) (Theme, error) {
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    llm.SystemUser(systemPrompt, themePrompt(snippets, themeID, question)),
		MaxTokens:   themeMaxTokens,
		Temperature: themeTemperature,
		JSONMode:    true,
	})
	if err != nil {
		return Theme{}, fmt.Errorf("theme %d completion: %w", themeID, err)
	}
	return ParseThemeSummary(resp.Content, themeID, citations(snippets))
}

var errEmptyTheme = errors.New("theme response has neither name nor summary")

// ParseThemeSummary reads a {theme_name, summary, citations} object from a
// model reply. A missing name becomes "Theme {themeID}" and missing citations
// become memberCitations.
func ParseThemeSummary(content string, themeID int, memberCitations []string) (Theme, error) {
	var raw struct {
		Name      string   `json:"theme_name"`
		Summary   string   `json:"summary"`
		Citations []string `json:"citations"`
	}
	if err := llm.DecodeJSON(content, &raw); err != nil {
		return Theme{}, fmt.Errorf("parsing theme %d: %w", themeID, err)
	}

	theme := Theme{
		Name:    strings.TrimSpace(raw.Name),
		Summary: strings.TrimSpace(raw.Summary),
	}
	if theme.Name == "" && theme.Summary == "" {
		return Theme{}, fmt.Errorf("parsing theme %d: %w", themeID, errEmptyTheme)
	}
	if theme.Name == "" {
		theme.Name = fmt.Sprintf("Theme %d", themeID)
	}
	for _, c := range raw.Citations {
		if c = strings.TrimSpace(c); c != "" {
			theme.Citations = append(theme.Citations, c)
		}
	}
	if len(theme.Citations) == 0 {
		theme.Citations = append([]string(nil), memberCitations...)
	}
	return theme, nil
}
