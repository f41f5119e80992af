package research

import (
	"context"
	"log/slog"

	"github.com/ziadkadry99/docsynth/internal/embeddings"
	"github.com/ziadkadry99/docsynth/internal/vectordb"
)

// Searcher is the part of the vector index the retriever needs.
// *vectordb.Index satisfies it.
type Searcher interface {
	Search(ctx context.Context, vector []float32, filter vectordb.Filter, k int) ([]vectordb.Hit, error)
}

// Retriever finds the chunks of a document most similar to a question.
type Retriever struct {
	embedder embeddings.Embedder
	index    Searcher
	dim      int
	logger   *slog.Logger
}

// NewRetriever creates a Retriever. dim is the vector length the index holds.
func NewRetriever(embedder embeddings.Embedder, index Searcher, dim int, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, index: index, dim: dim, logger: logger}
}

// RetrieveTopK returns up to topK chunks of docID, most similar first.
// Failures are logged and reported as an empty result: callers treat
// "nothing found" and "could not look" the same way.
func (r *Retriever) RetrieveTopK(ctx context.Context, question, docID string, topK int) []vectordb.Chunk {
	vec, err := embeddings.EmbedOne(ctx, r.embedder, question, r.dim)
	if err != nil {
		r.logger.Error("embedding question failed", "doc_id", docID, "error", err)
		return nil
	}

	hits, err := r.index.Search(ctx, vec, vectordb.Filter{DocID: docID}, topK)
	if err != nil {
		r.logger.Error("vector search failed", "doc_id", docID, "error", err)
		return nil
	}

	chunks := make([]vectordb.Chunk, 0, len(hits))
	for _, h := range hits {
		c := h.Chunk
		if c.DocID == "" {
			c.DocID = docID
		}
		chunks = append(chunks, c)
	}
	r.logger.Debug("retrieved chunks", "doc_id", docID, "count", len(chunks))
	return chunks
}
