package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ziadkadry99/docsynth/internal/llm"
	"github.com/ziadkadry99/docsynth/internal/vectordb"
)

const testDim = 3

// mapEmbedder returns fixed vectors per text. Unknown texts get a vector on
// the third axis; texts containing "FAIL" error out.
type mapEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mapEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(t, "FAIL") {
			return nil, fmt.Errorf("cannot embed %q", t)
		}
		if v, ok := m.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{0, 0, 1}
	}
	return out, nil
}

func (m *mapEmbedder) Dimensions() int { return testDim }
func (m *mapEmbedder) Name() string    { return "map" }

// groupEmbedder puts texts starting with "alpha" near the x axis and
// everything else near the y axis.
func groupEmbedder() *mapEmbedder {
	return &mapEmbedder{vectors: map[string][]float32{
		"alpha one":   {1, 0, 0},
		"alpha two":   {0.95, 0.05, 0},
		"alpha three": {0.9, 0.1, 0},
		"beta one":    {0, 1, 0},
		"beta two":    {0.05, 0.95, 0},
		"beta three":  {0.1, 0.9, 0},
	}}
}

type fakeSearcher struct {
	mu    sync.Mutex
	hits  map[string][]vectordb.Hit
	err   error
	calls []vectordb.Filter
	ks    []int
}

func (f *fakeSearcher) Search(_ context.Context, vector []float32, filter vectordb.Filter, k int) ([]vectordb.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filter)
	f.ks = append(f.ks, k)
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits[filter.DocID]
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// textExtractor answers with the chunk text unless told otherwise.
type textExtractor struct {
	answers map[string]string
	errs    map[string]error
}

func (e *textExtractor) Extract(_ context.Context, _ string, c vectordb.Chunk) (Extraction, error) {
	if err, ok := e.errs[c.Text]; ok {
		return Extraction{}, err
	}
	if a, ok := e.answers[c.Text]; ok {
		return Extraction{Answer: a}, nil
	}
	return Extraction{Answer: c.Text, Citation: FormatCitation(c)}, nil
}

type stubSummarizer struct {
	mu      sync.Mutex
	failOn  map[int]bool
	panicOn map[int]bool
	calls   []int
}

func (s *stubSummarizer) Summarize(_ context.Context, snippets []SnippetRecord, themeID int, _ string) (Theme, error) {
	s.mu.Lock()
	s.calls = append(s.calls, themeID)
	s.mu.Unlock()
	if s.panicOn[themeID] {
		panic("summarizer exploded")
	}
	if s.failOn[themeID] {
		return Theme{}, errors.New("summarizer down")
	}
	return Theme{
		Name:      fmt.Sprintf("Theme %d - stub", themeID),
		Summary:   fmt.Sprintf("%d snippets", len(snippets)),
		Citations: citations(snippets),
	}, nil
}

// scriptedProvider answers every completion with content, or err.
type scriptedProvider struct {
	mu      sync.Mutex
	content string
	err     error
	reqs    []llm.CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.content}, nil
}

func records(texts ...string) []SnippetRecord {
	out := make([]SnippetRecord, len(texts))
	for i, t := range texts {
		out[i] = SnippetRecord{DocID: "doc_test", Text: t, Citation: fmt.Sprintf("c%d", i)}
	}
	return out
}

func chunk(doc string, para int, text string) vectordb.Chunk {
	return vectordb.Chunk{DocID: doc, PageNum: 1, ParagraphIndex: para, Text: text}
}
