package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docsynth/internal/llm"
	"github.com/ziadkadry99/docsynth/internal/logging"
)

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Extraction
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"answer": "Revenue grew 12%.", "citation": "DocID: doc_1, Page: 1, Para: 2"}`,
			want:    Extraction{Answer: "Revenue grew 12%.", Citation: "DocID: doc_1, Page: 1, Para: 2"},
		},
		{
			name:    "fenced",
			content: "```json\n{\"answer\": \"  yes  \", \"citation\": \"\"}\n```",
			want:    Extraction{Answer: "yes"},
		},
		{
			name:    "bare sentinel",
			content: " NO_ANSWER ",
			want:    Extraction{Answer: NoAnswer},
		},
		{
			name:    "quoted sentinel",
			content: `"no_answer"`,
			want:    Extraction{Answer: NoAnswer},
		},
		{
			name:    "prose",
			content: "I could not find anything relevant.",
			wantErr: true,
		},
		{
			name:    "wrong shape",
			content: `{"answer": ["a", "b"]}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExtraction(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMExtractorUsesChunkCitation(t *testing.T) {
	p := &scriptedProvider{content: `{"answer": "Fines were imposed.", "citation": "DocID: other, Page: 9, Para: 9"}`}
	e := NewLLMExtractor(p, logging.Discard())
	c := chunk("doc_ab12cd34", 3, "The regulator imposed fines in 2021.")

	got, err := e.Extract(context.Background(), "What penalties?", c)
	require.NoError(t, err)
	assert.Equal(t, "Fines were imposed.", got.Answer)
	assert.Equal(t, "DocID: doc_ab12cd34, Page: 1, Para: 3", got.Citation)

	require.Len(t, p.reqs, 1)
	req := p.reqs[0]
	assert.Equal(t, 0.0, req.Temperature)
	assert.True(t, req.JSONMode)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, `"What penalties?"`)
	assert.Contains(t, req.Messages[1].Content, "The regulator imposed fines in 2021.")
	assert.Contains(t, req.Messages[1].Content, "DocID: doc_ab12cd34, Page: 1, Para: 3")
}

func TestLLMExtractorAbsorbsFailures(t *testing.T) {
	c := chunk("doc", 1, "text")
	for name, p := range map[string]*scriptedProvider{
		"provider error": {err: errors.New("status 500")},
		"garbage":        {content: "sorry, I cannot help"},
		"no answer":      {content: `{"answer": "NO_ANSWER", "citation": ""}`},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := NewLLMExtractor(p, logging.Discard()).Extract(context.Background(), "q", c)
			require.NoError(t, err)
			assert.True(t, got.IsNoAnswer())
			assert.Empty(t, got.Citation)
		})
	}
}

func TestParseThemeSummary(t *testing.T) {
	members := []string{"c0", "c1"}

	got, err := ParseThemeSummary(`{"theme_name": "Theme 2 - Fines", "summary": "Both cite fines.", "citations": ["c0", " ", "c1"]}`, 2, members)
	require.NoError(t, err)
	assert.Equal(t, Theme{Name: "Theme 2 - Fines", Summary: "Both cite fines.", Citations: []string{"c0", "c1"}}, got)

	got, err = ParseThemeSummary(`{"summary": "Only a summary."}`, 3, members)
	require.NoError(t, err)
	assert.Equal(t, "Theme 3", got.Name)
	assert.Equal(t, members, got.Citations)

	_, err = ParseThemeSummary(`{"citations": []}`, 1, members)
	assert.Error(t, err)

	_, err = ParseThemeSummary("no json here", 1, members)
	assert.ErrorIs(t, err, llm.ErrNoJSON)
}

func TestLLMSummarizer(t *testing.T) {
	snippets := records("alpha one", "alpha two")

	p := &scriptedProvider{content: "```json\n{\"theme_name\": \"Theme 1 - Alpha\", \"summary\": \"Alpha things.\"}\n```"}
	got, err := NewLLMSummarizer(p).Summarize(context.Background(), snippets, 1, "What about alpha?")
	require.NoError(t, err)
	assert.Equal(t, Theme{Name: "Theme 1 - Alpha", Summary: "Alpha things.", Citations: []string{"c0", "c1"}}, got)

	prompt := p.reqs[0].Messages[1].Content
	assert.Contains(t, prompt, "Theme 1:")
	assert.Contains(t, prompt, `[c0] "alpha one"`)
	assert.Equal(t, 0.2, p.reqs[0].Temperature)

	_, err = NewLLMSummarizer(&scriptedProvider{err: errors.New("429")}).Summarize(context.Background(), snippets, 1, "q")
	assert.Error(t, err)
}

func TestPromptsQuoteQuestion(t *testing.T) {
	q := `say "hi"`
	assert.True(t, strings.Contains(extractPrompt(q, chunk("d", 1, "t")), `"say \"hi\""`))
	assert.True(t, strings.Contains(themePrompt(nil, 1, q), `"say \"hi\""`))
}
