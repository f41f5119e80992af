package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

var (
	// ErrProvider wraps any failure reported by the embedding backend.
	ErrProvider = errors.New("embedding provider error")
	// ErrDimensionMismatch is returned when a vector does not have the
	// configured number of components.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// EmbedOne embeds a single text and returns exactly one vector of length dim.
// Backends that answer a single input with a one-element batch are unwrapped.
// Vectors of any other length are rejected; they are never padded or truncated.
func EmbedOne(ctx context.Context, e Embedder, text string, dim int) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		if errors.Is(err, ErrProvider) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrProvider, e.Name(), err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d vectors for one input", ErrProvider, e.Name(), len(vecs))
	}
	if len(vecs[0]) != dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vecs[0]), dim)
	}
	return vecs[0], nil
}
