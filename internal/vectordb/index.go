package vectordb

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ziadkadry99/docsynth/internal/embeddings"
)

var (
	// ErrDimensionMismatch is returned for query vectors of the wrong length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrCollectionConflict is returned when an existing collection was created
	// with a different dimension or metric than configured.
	ErrCollectionConflict = errors.New("collection configuration conflict")
)

// DefaultBatchSize is the number of points sent per upsert request.
const DefaultBatchSize = 16

// Options configures an Index.
type Options struct {
	Collection string
	Dimension  int
	BatchSize  int
	Logger     *slog.Logger
}

// Index is the vector index used by ingestion and retrieval. Every vector
// stored or queried through it has exactly Dimension components.
type Index struct {
	backend    Backend
	collection string
	dim        int
	batchSize  int
	logger     *slog.Logger
}

// NewIndex wraps backend. BatchSize defaults to 16.
func NewIndex(backend Backend, opts Options) *Index {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Index{
		backend:    backend,
		collection: opts.Collection,
		dim:        opts.Dimension,
		batchSize:  opts.BatchSize,
		logger:     opts.Logger.With("collection", opts.Collection, "backend", backend.Name()),
	}
}

// Dimension is the configured vector length.
func (x *Index) Dimension() int { return x.dim }

// Collection is the configured collection name.
func (x *Index) Collection() string { return x.collection }

// EnsureCollection creates the collection if it is missing. An existing
// collection is left untouched; if its schema disagrees with the configuration
// an error wrapping ErrCollectionConflict is returned. A backend reporting
// dimension 0 does not know it, and the collection is accepted as is.
func (x *Index) EnsureCollection(ctx context.Context) error {
	info, err := x.backend.CollectionInfo(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("inspecting collection %q: %w", x.collection, err)
	}
	if info == nil {
		x.logger.Info("creating collection", "dimension", x.dim, "distance", DistanceCosine)
		if err := x.backend.CreateCollection(ctx, x.collection, x.dim); err != nil {
			return fmt.Errorf("creating collection %q: %w", x.collection, err)
		}
		return nil
	}
	if info.Dimension != 0 && info.Dimension != x.dim {
		return fmt.Errorf("%w: %q has dimension %d, configured %d", ErrCollectionConflict, x.collection, info.Dimension, x.dim)
	}
	if info.Distance != "" && !strings.EqualFold(info.Distance, DistanceCosine) {
		return fmt.Errorf("%w: %q uses %s distance, expected %s", ErrCollectionConflict, x.collection, info.Distance, DistanceCosine)
	}
	return nil
}

// UpsertReport summarizes an Upsert call.
type UpsertReport struct {
	Upserted      int
	Rejected      int
	FailedBatches int
	FailedPoints  int
}

// Upsert writes points in batches. Points whose vector length is wrong are
// dropped and logged. A batch the backend refuses is logged and skipped;
// later batches still run. Only context cancellation is returned as an error.
func (x *Index) Upsert(ctx context.Context, points []Point) (UpsertReport, error) {
	var report UpsertReport

	valid := make([]Point, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != x.dim {
			report.Rejected++
			x.logger.Warn("dropping point with wrong vector length",
				"point_id", p.ID,
				"doc_id", p.Chunk.DocID,
				"got", len(p.Vector),
				"want", x.dim,
			)
			continue
		}
		valid = append(valid, p)
	}

	for start := 0; start < len(valid); start += x.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := min(start+x.batchSize, len(valid))
		batch := valid[start:end]

		if err := x.backend.Upsert(ctx, x.collection, batch); err != nil {
			report.FailedBatches++
			report.FailedPoints += len(batch)
			x.logger.Error("upsert batch failed",
				"batch_start", start,
				"batch_size", len(batch),
				"error", err,
			)
			continue
		}
		report.Upserted += len(batch)
		x.logger.Debug("upserted batch", "count", len(batch))
	}

	return report, nil
}

// Search returns up to k hits for vector, most similar first. A missing
// collection or an empty match set yields no hits and no error.
func (x *Index) Search(ctx context.Context, vector []float32, filter Filter, k int) ([]Hit, error) {
	if len(vector) != x.dim {
		return nil, fmt.Errorf("%w: query has %d components, want %d", ErrDimensionMismatch, len(vector), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	info, err := x.backend.CollectionInfo(ctx, x.collection)
	if err != nil {
		return nil, fmt.Errorf("inspecting collection %q: %w", x.collection, err)
	}
	if info == nil {
		return nil, nil
	}

	hits, err := x.backend.Search(ctx, x.collection, vector, filter, k)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", x.collection, err)
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteDocument removes every point belonging to docID.
func (x *Index) DeleteDocument(ctx context.Context, docID string) error {
	info, err := x.backend.CollectionInfo(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("inspecting collection %q: %w", x.collection, err)
	}
	if info == nil {
		return nil
	}
	if err := x.backend.DeleteByDocID(ctx, x.collection, docID); err != nil {
		return fmt.Errorf("deleting points of %s: %w", docID, err)
	}
	x.logger.Info("deleted document points", "doc_id", docID)
	return nil
}

// Count returns the number of stored points, zero if the collection is missing.
func (x *Index) Count(ctx context.Context) (int, error) {
	info, err := x.backend.CollectionInfo(ctx, x.collection)
	if err != nil || info == nil {
		return 0, err
	}
	return x.backend.Count(ctx, x.collection)
}

// IndexReport summarizes an IndexChunks call.
type IndexReport struct {
	UpsertReport
	Chunks        int
	EmbedFailures int
	SkippedChunks int
}

// IndexChunks embeds chunks and upserts them. The collection is created if
// needed. A chunk whose embedding fails is logged and skipped.
func (x *Index) IndexChunks(ctx context.Context, embedder embeddings.Embedder, chunks []Chunk) (IndexReport, error) {
	report := IndexReport{Chunks: len(chunks)}
	if len(chunks) == 0 {
		return report, nil
	}
	if err := x.EnsureCollection(ctx); err != nil {
		return report, err
	}

	points := make([]Point, 0, len(chunks))
	for start := 0; start < len(chunks); start += x.batchSize {
		end := min(start+x.batchSize, len(chunks))
		batch := make([]Chunk, 0, end-start)
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			if strings.TrimSpace(c.Text) == "" {
				report.SkippedChunks++
				continue
			}
			batch = append(batch, c)
			texts = append(texts, c.Text)
		}
		if len(batch) == 0 {
			continue
		}

		vecs, err := embedder.Embed(ctx, texts)
		if err == nil && len(vecs) == len(batch) {
			for i, c := range batch {
				points = append(points, NewPoint(c, vecs[i]))
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		// Retry one by one so a single bad chunk does not sink its neighbours.
		x.logger.Warn("batch embedding failed, retrying per chunk", "batch_size", len(batch), "error", err)
		for _, c := range batch {
			vec, err := embeddings.EmbedOne(ctx, embedder, c.Text, x.dim)
			if err != nil {
				report.EmbedFailures++
				x.logger.Error("embedding failed",
					"doc_id", c.DocID,
					"page", c.PageNum,
					"para", c.ParagraphIndex,
					"error", err,
				)
				continue
			}
			points = append(points, NewPoint(c, vec))
		}
	}

	up, err := x.Upsert(ctx, points)
	report.UpsertReport = up
	if err != nil {
		return report, err
	}
	x.logger.Info("indexed chunks",
		"chunks", report.Chunks,
		"upserted", report.Upserted,
		"rejected", report.Rejected,
		"embed_failures", report.EmbedFailures,
	)
	return report, nil
}
