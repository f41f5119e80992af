package research

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docsynth/internal/logging"
	"github.com/ziadkadry99/docsynth/internal/vectordb"
)

func TestCitationRoundTrip(t *testing.T) {
	c := vectordb.Chunk{DocID: "doc_ab12cd34", PageNum: 4, ParagraphIndex: 2}
	s := FormatCitation(c)
	assert.Equal(t, "DocID: doc_ab12cd34, Page: 4, Para: 2", s)

	parsed, err := ParseCitation(s)
	require.NoError(t, err)
	assert.Equal(t, c, parsed)

	_, err = ParseCitation("doc_ab12cd34, Page 4, Para 2")
	assert.ErrorIs(t, err, ErrBadCitation)
}

func TestIsNoAnswer(t *testing.T) {
	for _, a := range []string{"", "  ", "NO_ANSWER", "no_answer", "  No_Answer \n"} {
		assert.True(t, Extraction{Answer: a}.IsNoAnswer(), "%q", a)
	}
	assert.False(t, Extraction{Answer: "Revenue grew."}.IsNoAnswer())
}

func TestClusterCount(t *testing.T) {
	tests := map[int]int{0: 1, 1: 1, 2: 1, 3: 1, 5: 1, 6: 2, 8: 2, 9: 3, 12: 4, 13: 4, 100: 4}
	for total, want := range tests {
		assert.Equal(t, want, ClusterCount(total), "total=%d", total)
	}
}

// --- Retriever ---

func TestRetrieveTopK(t *testing.T) {
	searcher := &fakeSearcher{hits: map[string][]vectordb.Hit{
		"doc_a": {
			{Score: 0.9, Chunk: chunk("doc_a", 1, "first")},
			{Score: 0.8, Chunk: chunk("", 2, "second")},
			{Score: 0.7, Chunk: chunk("doc_a", 3, "third")},
		},
	}}
	r := NewRetriever(&mapEmbedder{}, searcher, testDim, logging.Discard())

	got := r.RetrieveTopK(context.Background(), "what?", "doc_a", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "doc_a", got[1].DocID, "missing doc id defaults to the requested one")
	assert.Equal(t, []vectordb.Filter{{DocID: "doc_a"}}, searcher.calls)
	assert.Equal(t, []int{2}, searcher.ks)
}

func TestRetrieveTopKEmptyOnError(t *testing.T) {
	ctx := context.Background()
	searcher := &fakeSearcher{hits: map[string][]vectordb.Hit{"doc_a": {{Chunk: chunk("doc_a", 1, "x")}}}}

	r := NewRetriever(&mapEmbedder{err: errors.New("unreachable")}, searcher, testDim, logging.Discard())
	assert.Empty(t, r.RetrieveTopK(ctx, "q", "doc_a", 3))
	assert.Empty(t, searcher.calls, "search is not attempted without a query vector")

	wrongDim := &mapEmbedder{vectors: map[string][]float32{"q": {1, 2}}}
	r = NewRetriever(wrongDim, searcher, testDim, logging.Discard())
	assert.Empty(t, r.RetrieveTopK(ctx, "q", "doc_a", 3))

	r = NewRetriever(&mapEmbedder{}, &fakeSearcher{err: errors.New("boom")}, testDim, logging.Discard())
	assert.Empty(t, r.RetrieveTopK(ctx, "q", "doc_a", 3))
}

// --- Extraction stage ---

func TestExtractAllFiltersNoAnswer(t *testing.T) {
	ext := &textExtractor{answers: map[string]string{"b": "NO_ANSWER", "d": " no_answer "}}
	stage := NewExtractionStage(ext, 0, logging.Discard())

	chunks := []vectordb.Chunk{chunk("doc", 1, "text A"), chunk("doc", 2, "b"), chunk("doc", 3, "text B"), chunk("doc", 4, "d")}
	got := stage.ExtractAll(context.Background(), "q", chunks)

	require.Len(t, got, 2)
	assert.Equal(t, "text A", got[0].Text)
	assert.Equal(t, "text B", got[1].Text)
	assert.Equal(t, "DocID: doc, Page: 1, Para: 3", got[1].Citation)
}

func TestExtractAllIsolatesFailures(t *testing.T) {
	ext := &textExtractor{errs: map[string]error{"c2": errors.New("timeout")}}
	stage := NewExtractionStage(ext, 0, logging.Discard())

	var chunks []vectordb.Chunk
	for i := range 5 {
		chunks = append(chunks, chunk("doc", i+1, fmt.Sprintf("c%d", i)))
	}
	got := stage.ExtractAll(context.Background(), "q", chunks)

	require.Len(t, got, 4)
	assert.Equal(t, []string{"c0", "c1", "c3", "c4"}, []string{got[0].Text, got[1].Text, got[2].Text, got[3].Text})
}

type panickyExtractor struct{}

func (panickyExtractor) Extract(_ context.Context, _ string, c vectordb.Chunk) (Extraction, error) {
	if c.Text == "bad" {
		panic("nil map")
	}
	return Extraction{Answer: c.Text}, nil
}

func TestExtractAllRecoversPanics(t *testing.T) {
	stage := NewExtractionStage(panickyExtractor{}, 0, logging.Discard())
	got := stage.ExtractAll(context.Background(), "q", []vectordb.Chunk{chunk("doc", 1, "bad"), chunk("doc", 2, "good")})
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].Text)
	assert.Equal(t, "DocID: doc, Page: 1, Para: 2", got[0].Citation, "empty citations are filled from the chunk")
}

type slowExtractor struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowExtractor) Extract(_ context.Context, _ string, c vectordb.Chunk) (Extraction, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return Extraction{Answer: c.Text}, nil
}

func TestExtractAllBoundsConcurrency(t *testing.T) {
	ext := &slowExtractor{}
	stage := NewExtractionStage(ext, 2, logging.Discard())

	var chunks []vectordb.Chunk
	for i := range 8 {
		chunks = append(chunks, chunk("doc", i+1, fmt.Sprintf("c%d", i)))
	}
	got := stage.ExtractAll(context.Background(), "q", chunks)

	assert.Len(t, got, 8)
	assert.LessOrEqual(t, ext.peak.Load(), int32(2))
}

func TestExtractAllEmpty(t *testing.T) {
	stage := NewExtractionStage(&textExtractor{}, 0, logging.Discard())
	assert.Empty(t, stage.ExtractAll(context.Background(), "q", nil))
}

// --- Clusterer ---

func TestClusterEmptyInput(t *testing.T) {
	c := NewClusterer(groupEmbedder(), testDim, logging.Discard())
	assert.Empty(t, c.Cluster(context.Background(), nil, 2))
	assert.Empty(t, c.Cluster(context.Background(), records("  ", ""), 2))
}

func TestClusterSingleClusterShortcut(t *testing.T) {
	c := NewClusterer(groupEmbedder(), testDim, logging.Discard())
	snippets := records("alpha one", "", "beta one", "alpha two")

	got := c.Cluster(context.Background(), snippets, 1)
	assert.Equal(t, map[int][]int{0: {0, 2, 3}}, got, "blank snippet index 1 is skipped, indices refer to the input")
}

func TestClusterSkipsEmbeddingFailures(t *testing.T) {
	c := NewClusterer(groupEmbedder(), testDim, logging.Discard())
	snippets := records("alpha one", "FAIL here", "alpha two")

	got := c.Cluster(context.Background(), snippets, 1)
	assert.Equal(t, map[int][]int{0: {0, 2}}, got)

	// Only one snippet embeds, so k collapses to 1 without clustering.
	got = c.Cluster(context.Background(), records("FAIL 1", "beta one", "FAIL 2"), 4)
	assert.Equal(t, map[int][]int{0: {1}}, got)
}

func TestClusterEmbedsSnippetTextUnchanged(t *testing.T) {
	emb := &mapEmbedder{vectors: map[string][]float32{
		" alpha one ": {1, 0, 0},
		"beta one\n":  {0, 1, 0},
		"\talpha two": {0.95, 0.05, 0},
	}}
	c := NewClusterer(emb, testDim, logging.Discard())

	got := c.Cluster(context.Background(), records(" alpha one ", "beta one\n", "\talpha two"), 2)
	assert.Equal(t, map[int][]int{0: {0, 2}, 1: {1}}, got)
}

func TestClusterFallsBackWhenClusteringFails(t *testing.T) {
	nan := float32(0)
	nan = nan / nan
	emb := &mapEmbedder{vectors: map[string][]float32{"x": {nan, 0, 0}, "y": {1, 0, 0}, "z": {0, 1, 0}}}
	c := NewClusterer(emb, testDim, logging.Discard())

	got := c.Cluster(context.Background(), records("x", "y", "z"), 2)
	assert.Equal(t, map[int][]int{0: {0, 1, 2}}, got)
}

func TestClusterPartitionsGroups(t *testing.T) {
	c := NewClusterer(groupEmbedder(), testDim, logging.Discard())
	snippets := records("alpha one", "beta one", "alpha two", "beta two", "alpha three", "beta three")

	got := c.Cluster(context.Background(), snippets, 2)
	assert.Equal(t, map[int][]int{0: {0, 2, 4}, 1: {1, 3, 5}}, got)
}

// --- Synthesizer ---

func newTestSynthesizer(emb *mapEmbedder, sum ThemeSummarizer) *Synthesizer {
	return NewSynthesizer(NewClusterer(emb, testDim, logging.Discard()), sum, logging.Discard())
}

func TestSynthesizeEmpty(t *testing.T) {
	s := newTestSynthesizer(groupEmbedder(), &stubSummarizer{})
	assert.Empty(t, s.Synthesize(context.Background(), nil, "q"))
}

func TestSynthesizeAllEmbeddingsFail(t *testing.T) {
	sum := &stubSummarizer{}
	s := newTestSynthesizer(&mapEmbedder{err: errors.New("down")}, sum)
	snippets := records("alpha one", "beta one", "alpha two", "beta two")

	got := s.Synthesize(context.Background(), snippets, "q")
	require.Len(t, got, 1)
	assert.Equal(t, Theme{Name: "Theme 1", Summary: "", Citations: []string{"c0", "c1", "c2", "c3"}}, got[0])
	assert.Empty(t, sum.calls, "summarizer is not consulted for the fallback theme")
}

func TestSynthesizeSixSnippetsTwoThemes(t *testing.T) {
	sum := &stubSummarizer{}
	s := newTestSynthesizer(groupEmbedder(), sum)
	snippets := records("alpha one", "beta one", "alpha two", "beta two", "alpha three", "beta three")

	got := s.Synthesize(context.Background(), snippets, "q")
	require.Len(t, got, 2)

	seen := map[string]int{}
	for _, th := range got {
		require.NotEmpty(t, th.Citations)
		for _, c := range th.Citations {
			seen[c]++
		}
	}
	assert.Len(t, seen, 6, "every citation appears")
	for c, n := range seen {
		assert.Equal(t, 1, n, "citation %s appears in exactly one theme", c)
	}

	assert.Equal(t, "Theme 1 - stub", got[0].Name)
	assert.Equal(t, []string{"c0", "c2", "c4"}, got[0].Citations)
	assert.Equal(t, "Theme 2 - stub", got[1].Name)

	ids := append([]int(nil), sum.calls...)
	sort.Ints(ids)
	assert.Equal(t, []int{1, 2}, ids)
}

func TestSynthesizeSummarizerFailureFallsBackPerCluster(t *testing.T) {
	s := newTestSynthesizer(groupEmbedder(), &stubSummarizer{failOn: map[int]bool{2: true}})
	snippets := records("alpha one", "beta one", "alpha two", "beta two", "alpha three", "beta three")

	got := s.Synthesize(context.Background(), snippets, "q")
	require.Len(t, got, 2)
	assert.Equal(t, "Theme 1 - stub", got[0].Name)
	assert.Equal(t, Theme{Name: "Theme 2", Summary: "", Citations: []string{"c1", "c3", "c5"}}, got[1])
}

func TestSynthesizeRecoversSummarizerPanic(t *testing.T) {
	s := newTestSynthesizer(groupEmbedder(), &stubSummarizer{panicOn: map[int]bool{1: true}})
	snippets := records("alpha one", "beta one", "alpha two", "beta two", "alpha three", "beta three")

	got := s.Synthesize(context.Background(), snippets, "q")
	require.Len(t, got, 2)
	assert.Equal(t, Theme{Name: "Theme 1", Summary: "", Citations: []string{"c0", "c2", "c4"}}, got[0])
	assert.Equal(t, "Theme 2 - stub", got[1].Name)
}

func TestSynthesizeThemeCountBound(t *testing.T) {
	emb := &mapEmbedder{vectors: map[string][]float32{}}
	var texts []string
	for i := range 20 {
		text := fmt.Sprintf("snippet %d", i)
		emb.vectors[text] = []float32{float32(i % 5), float32(i * i % 7), float32(i)}
		texts = append(texts, text)
	}
	s := newTestSynthesizer(emb, &stubSummarizer{})

	for n := 1; n <= len(texts); n++ {
		got := s.Synthesize(context.Background(), records(texts[:n]...), "q")
		assert.GreaterOrEqual(t, len(got), 1, "n=%d", n)
		assert.LessOrEqual(t, len(got), MaxThemes, "n=%d", n)
		assert.Equal(t, ClusterCount(n), len(got), "n=%d", n)
	}
}
