package research

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ThemeSummarizer names and summarizes one cluster of snippets.
type ThemeSummarizer interface {
	Summarize(ctx context.Context, snippets []SnippetRecord, themeID int, question string) (Theme, error)
}

// Synthesizer turns a pool of snippets into themes.
type Synthesizer struct {
	clusterer  *Clusterer
	summarizer ThemeSummarizer
	logger     *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(clusterer *Clusterer, summarizer ThemeSummarizer, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{clusterer: clusterer, summarizer: summarizer, logger: logger}
}

// Synthesize clusters snippets and summarizes each cluster. It returns no
// themes only for an empty input, and otherwise between one and MaxThemes
// themes ordered by cluster label.
func (s *Synthesizer) Synthesize(ctx context.Context, snippets []SnippetRecord, question string) []Theme {
	if len(snippets) == 0 {
		return nil
	}

	groups := s.clusterer.Cluster(ctx, snippets, ClusterCount(len(snippets)))
	if len(groups) == 0 {
		s.logger.Warn("no snippet could be clustered, returning a single theme", "snippets", len(snippets))
		return []Theme{{
			Name:      "Theme 1",
			Summary:   "",
			Citations: citations(snippets),
		}}
	}

	labels := make([]int, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	themes := make([]Theme, len(labels))
	var wg sync.WaitGroup
	for pos, label := range labels {
		members := make([]SnippetRecord, len(groups[label]))
		for j, idx := range groups[label] {
			members[j] = snippets[idx]
		}

		wg.Add(1)
		go func(pos, label int, members []SnippetRecord) {
			defer wg.Done()
			themes[pos] = s.summarize(ctx, members, label, question)
		}(pos, label, members)
	}
	wg.Wait()

	return themes
}

func (s *Synthesizer) summarize(ctx context.Context, members []SnippetRecord, label int, question string) (theme Theme) {
	themeID := label + 1
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("theme summarizer panicked, using fallback", "theme", themeID, "panic", p)
			theme = fallbackTheme(themeID, members)
		}
	}()

	theme, err := s.summarizer.Summarize(ctx, members, themeID, question)
	if err != nil {
		s.logger.Error("theme summary failed, using fallback", "theme", themeID, "error", err)
		return fallbackTheme(themeID, members)
	}
	return theme
}

func fallbackTheme(themeID int, members []SnippetRecord) Theme {
	return Theme{
		Name:      fmt.Sprintf("Theme %d", themeID),
		Summary:   "",
		Citations: citations(members),
	}
}
