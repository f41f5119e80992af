package vectordb

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docsynth/internal/logging"
)

// mockEmbedder returns deterministic embeddings based on text content.
// Texts containing "FAIL" cannot be embedded.
type mockEmbedder struct {
	dims int
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.Contains(text, "FAIL") {
			return nil, errors.New("refusing to embed")
		}
		results[i] = deterministicVector(text, m.dims)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// deterministicVector spreads characters over the vector so texts sharing
// characters end up close together.
func deterministicVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for i, ch := range text {
		vec[(int(ch)+i)%dims] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func axis(dims, i int) []float32 {
	v := make([]float32, dims)
	v[i%dims] = 1
	return v
}

func newTestIndex(t *testing.T, dims int) (*Index, *ChromemBackend) {
	t.Helper()
	backend, err := NewChromemBackend("", nil)
	require.NoError(t, err)
	idx := NewIndex(backend, Options{
		Collection: "document_chunks",
		Dimension:  dims,
		BatchSize:  2,
		Logger:     logging.Discard(),
	})
	return idx, backend
}

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("doc_1a2b3c4d", 1, 2)
	b := PointID("doc_1a2b3c4d", 1, 2)
	assert.Equal(t, a, b)

	_, err := uuid.Parse(a)
	assert.NoError(t, err, "point IDs must be valid UUIDs")

	assert.NotEqual(t, a, PointID("doc_1a2b3c4d", 2, 1))
	assert.NotEqual(t, a, PointID("doc_1a2b3c4e", 1, 2))
	// "doc_1" page 12 para 3 must not collide with "doc_1" page 1 para 23.
	assert.NotEqual(t, PointID("doc_1", 12, 3), PointID("doc_1", 1, 23))
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(t, 4)

	require.NoError(t, idx.EnsureCollection(ctx))
	_, err := idx.Upsert(ctx, []Point{NewPoint(Chunk{DocID: "d", PageNum: 1, ParagraphIndex: 1, Text: "x"}, axis(4, 0))})
	require.NoError(t, err)

	require.NoError(t, idx.EnsureCollection(ctx))
	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "reconciling must not drop existing points")
}

func TestEnsureCollectionDimensionConflict(t *testing.T) {
	ctx := context.Background()
	backend, err := NewChromemBackend("", nil)
	require.NoError(t, err)

	small := NewIndex(backend, Options{Collection: "c", Dimension: 3, Logger: logging.Discard()})
	require.NoError(t, small.EnsureCollection(ctx))

	large := NewIndex(backend, Options{Collection: "c", Dimension: 4, Logger: logging.Discard()})
	assert.ErrorIs(t, large.EnsureCollection(ctx), ErrCollectionConflict)
}

func TestUpsertDropsWrongDimension(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(t, 4)
	require.NoError(t, idx.EnsureCollection(ctx))

	points := []Point{
		NewPoint(Chunk{DocID: "d", PageNum: 1, ParagraphIndex: 1, Text: "a"}, axis(4, 0)),
		NewPoint(Chunk{DocID: "d", PageNum: 1, ParagraphIndex: 2, Text: "b"}, []float32{1, 0, 0}),
		NewPoint(Chunk{DocID: "d", PageNum: 1, ParagraphIndex: 3, Text: "c"}, axis(4, 1)),
	}
	report, err := idx.Upsert(ctx, points)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Upserted)
	assert.Equal(t, 1, report.Rejected)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertIsIdempotentByID(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(t, 4)
	require.NoError(t, idx.EnsureCollection(ctx))

	p := NewPoint(Chunk{DocID: "d", PageNum: 1, ParagraphIndex: 1, Text: "a"}, axis(4, 0))
	for i := 0; i < 3; i++ {
		_, err := idx.Upsert(ctx, []Point{p})
		require.NoError(t, err)
	}
	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// flakyBackend fails the Nth upsert call and records the rest.
type flakyBackend struct {
	mu       sync.Mutex
	failCall int
	calls    int
	stored   []Point
}

func (f *flakyBackend) Name() string { return "flaky" }
func (f *flakyBackend) CollectionInfo(context.Context, string) (*CollectionInfo, error) {
	return &CollectionInfo{Dimension: 2, Distance: DistanceCosine}, nil
}
func (f *flakyBackend) CreateCollection(context.Context, string, int) error { return nil }
func (f *flakyBackend) Upsert(_ context.Context, _ string, points []Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == f.failCall {
		return errors.New("transient failure")
	}
	f.stored = append(f.stored, points...)
	return nil
}
func (f *flakyBackend) Search(context.Context, string, []float32, Filter, int) ([]Hit, error) {
	return nil, errors.New("search unavailable")
}
func (f *flakyBackend) DeleteByDocID(context.Context, string, string) error { return nil }
func (f *flakyBackend) Count(context.Context, string) (int, error)          { return len(f.stored), nil }

func TestUpsertBatchFailureContinues(t *testing.T) {
	backend := &flakyBackend{failCall: 2}
	idx := NewIndex(backend, Options{Collection: "c", Dimension: 2, BatchSize: 2, Logger: logging.Discard()})

	var points []Point
	for i := 1; i <= 5; i++ {
		points = append(points, NewPoint(Chunk{DocID: "d", PageNum: 1, ParagraphIndex: i}, []float32{1, 0}))
	}

	report, err := idx.Upsert(context.Background(), points)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.calls)
	assert.Equal(t, 1, report.FailedBatches)
	assert.Equal(t, 2, report.FailedPoints)
	assert.Equal(t, 3, report.Upserted)
	assert.Len(t, backend.stored, 3)
}

func TestSearchFiltersByDocAndOrders(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(t, 4)
	require.NoError(t, idx.EnsureCollection(ctx))

	points := []Point{
		NewPoint(Chunk{DocID: "A", PageNum: 1, ParagraphIndex: 1, Text: "exact"}, []float32{1, 0, 0, 0}),
		NewPoint(Chunk{DocID: "A", PageNum: 1, ParagraphIndex: 2, Text: "close"}, []float32{0.8, 0.6, 0, 0}),
		NewPoint(Chunk{DocID: "A", PageNum: 2, ParagraphIndex: 1, Text: "far"}, []float32{0, 0, 1, 0}),
		NewPoint(Chunk{DocID: "B", PageNum: 1, ParagraphIndex: 1, Text: "other doc"}, []float32{1, 0, 0, 0}),
	}
	_, err := idx.Upsert(ctx, points)
	require.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, Filter{DocID: "A"}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].Chunk.Text)
	assert.Equal(t, "close", hits[1].Chunk.Text)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	for _, h := range hits {
		assert.Equal(t, "A", h.Chunk.DocID)
		assert.Equal(t, 1, h.Chunk.PageNum)
	}

	// k larger than the collection is clamped.
	hits, err = idx.Search(ctx, []float32{1, 0, 0, 0}, Filter{}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 4)
}

func TestSearchEmptyCases(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(t, 4)

	hits, err := idx.Search(ctx, axis(4, 0), Filter{DocID: "A"}, 3)
	require.NoError(t, err, "missing collection is not an error")
	assert.Empty(t, hits)

	require.NoError(t, idx.EnsureCollection(ctx))
	hits, err = idx.Search(ctx, axis(4, 0), Filter{DocID: "A"}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = idx.Upsert(ctx, []Point{NewPoint(Chunk{DocID: "B", PageNum: 1, ParagraphIndex: 1, Text: "b"}, axis(4, 0))})
	require.NoError(t, err)
	hits, err = idx.Search(ctx, axis(4, 0), Filter{DocID: "A"}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchRejectsWrongDimension(t *testing.T) {
	idx, _ := newTestIndex(t, 4)
	_, err := idx.Search(context.Background(), []float32{1, 0}, Filter{}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(t, 4)

	// Deleting before the collection exists is a no-op.
	require.NoError(t, idx.DeleteDocument(ctx, "A"))

	require.NoError(t, idx.EnsureCollection(ctx))
	_, err := idx.Upsert(ctx, []Point{
		NewPoint(Chunk{DocID: "A", PageNum: 1, ParagraphIndex: 1, Text: "a1"}, axis(4, 0)),
		NewPoint(Chunk{DocID: "A", PageNum: 1, ParagraphIndex: 2, Text: "a2"}, axis(4, 1)),
		NewPoint(Chunk{DocID: "B", PageNum: 1, ParagraphIndex: 1, Text: "b1"}, axis(4, 2)),
	})
	require.NoError(t, err)

	require.NoError(t, idx.DeleteDocument(ctx, "A"))
	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIndexChunksSkipsFailures(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(t, 8)
	embedder := &mockEmbedder{dims: 8}

	chunks := []Chunk{
		{DocID: "A", PageNum: 1, ParagraphIndex: 1, Text: "alpha beta"},
		{DocID: "A", PageNum: 1, ParagraphIndex: 2, Text: "please FAIL here"},
		{DocID: "A", PageNum: 1, ParagraphIndex: 3, Text: "   "},
		{DocID: "A", PageNum: 2, ParagraphIndex: 1, Text: "gamma delta"},
	}

	report, err := idx.IndexChunks(ctx, embedder, chunks)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Chunks)
	assert.Equal(t, 1, report.EmbedFailures)
	assert.Equal(t, 1, report.SkippedChunks)
	assert.Equal(t, 2, report.Upserted)

	hits, err := idx.Search(ctx, deterministicVector("alpha beta", 8), Filter{DocID: "A"}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "alpha beta", hits[0].Chunk.Text)
	assert.Equal(t, PointID("A", 1, 1), hits[0].ID)
}

func TestChromemPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := NewChromemBackend(dir, nil)
	require.NoError(t, err)
	idx := NewIndex(backend, Options{Collection: "document_chunks", Dimension: 4, Logger: logging.Discard()})
	require.NoError(t, idx.EnsureCollection(ctx))
	_, err = idx.Upsert(ctx, []Point{NewPoint(Chunk{DocID: "A", PageNum: 3, ParagraphIndex: 7, Text: "kept"}, axis(4, 0))})
	require.NoError(t, err)

	reopened, err := NewChromemBackend(dir, nil)
	require.NoError(t, err)

	info, err := reopened.CollectionInfo(ctx, "document_chunks")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, 4, info.Dimension)

	idx2 := NewIndex(reopened, Options{Collection: "document_chunks", Dimension: 4, Logger: logging.Discard()})
	hits, err := idx2.Search(ctx, axis(4, 0), Filter{DocID: "A"}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, Chunk{DocID: "A", PageNum: 3, ParagraphIndex: 7, Text: "kept"}, hits[0].Chunk)
}
