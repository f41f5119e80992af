package vectordb

import "context"

// Backend is a vector database holding named collections of points. Index
// layers validation, batching and logging on top of it.
type Backend interface {
	// CollectionInfo returns nil and no error when the collection does not exist.
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	// CreateCollection creates a cosine collection of the given dimension.
	CreateCollection(ctx context.Context, name string, dimension int) error

	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, name string, points []Point) error

	// Search returns up to limit hits ordered by descending similarity.
	Search(ctx context.Context, name string, vector []float32, filter Filter, limit int) ([]Hit, error)

	// DeleteByDocID removes every point whose chunk belongs to docID.
	DeleteByDocID(ctx context.Context, name string, docID string) error

	// Count returns the number of points in the collection.
	Count(ctx context.Context, name string) (int, error)

	// Name identifies the backend in logs.
	Name() string
}
