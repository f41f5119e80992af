package vectordb

import (
	"fmt"

	"github.com/google/uuid"
)

// Chunk is a contiguous span of document text, the unit of retrieval.
// (DocID, PageNum, ParagraphIndex) identifies it.
type Chunk struct {
	DocID          string `json:"doc_id"`
	PageNum        int    `json:"page_num"`
	ParagraphIndex int    `json:"paragraph_index"`
	Text           string `json:"chunk_text"`
}

// Point is a chunk paired with its embedding, as stored in the index.
type Point struct {
	ID     string
	Vector []float32
	Chunk  Chunk
}

// Hit is a search result. Vectors are never returned.
type Hit struct {
	ID    string
	Score float32
	Chunk Chunk
}

// Filter narrows a search. The zero value matches every point.
type Filter struct {
	DocID string
}

// CollectionInfo describes an existing collection.
type CollectionInfo struct {
	Dimension int
	Distance  string
}

// DistanceCosine is the only metric the index uses.
const DistanceCosine = "Cosine"

// pointNamespace scopes point IDs so they never collide with other UUIDv5 users.
var pointNamespace = uuid.MustParse("6f1c2d3e-8a4b-5c6d-9e0f-1a2b3c4d5e6f")

// PointID derives the point ID for a chunk. The same triple always yields the
// same ID, so re-indexing a chunk overwrites it instead of duplicating it.
func PointID(docID string, pageNum, paragraphIndex int) string {
	name := fmt.Sprintf("%s_%d_%d", docID, pageNum, paragraphIndex)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}

// NewPoint builds a Point for chunk with its deterministic ID.
func NewPoint(chunk Chunk, vector []float32) Point {
	return Point{
		ID:     PointID(chunk.DocID, chunk.PageNum, chunk.ParagraphIndex),
		Vector: vector,
		Chunk:  chunk,
	}
}
