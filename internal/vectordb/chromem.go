package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const manifestFile = "collections.json"

// ChromemBackend implements Backend with the embedded chromem-go database.
// With a directory every write is persisted under it; without one the data
// lives in memory only.
type ChromemBackend struct {
	db  *chromem.DB
	ef  chromem.EmbeddingFunc
	dir string

	mu    sync.Mutex
	infos map[string]CollectionInfo
}

// NewChromemBackend opens (or creates) a chromem database in dir. ef is only
// called for content added without a vector; pass nil to make that an error.
func NewChromemBackend(dir string, ef chromem.EmbeddingFunc) (*ChromemBackend, error) {
	if ef == nil {
		ef = func(context.Context, string) ([]float32, error) {
			return nil, errors.New("chromem backend requires precomputed vectors")
		}
	}

	b := &ChromemBackend{ef: ef, dir: dir, infos: map[string]CollectionInfo{}}
	if dir == "" {
		b.db = chromem.NewDB()
		return b, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating vector dir %s: %w", dir, err)
	}
	db, err := chromem.NewPersistentDB(dir, true)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db at %s: %w", dir, err)
	}
	b.db = db
	if err := b.loadManifest(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *ChromemBackend) Name() string { return "chromem" }

func (b *ChromemBackend) CollectionInfo(_ context.Context, name string) (*CollectionInfo, error) {
	if b.db.GetCollection(name, b.ef) == nil {
		return nil, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.infos[name]
	if !ok {
		info = CollectionInfo{Distance: DistanceCosine}
	}
	return &info, nil
}

func (b *ChromemBackend) CreateCollection(_ context.Context, name string, dimension int) error {
	meta := map[string]string{
		"dimension": strconv.Itoa(dimension),
		"distance":  DistanceCosine,
	}
	if _, err := b.db.CreateCollection(name, meta, b.ef); err != nil {
		return err
	}
	b.mu.Lock()
	b.infos[name] = CollectionInfo{Dimension: dimension, Distance: DistanceCosine}
	b.mu.Unlock()
	return b.saveManifest()
}

func (b *ChromemBackend) collection(name string) (*chromem.Collection, error) {
	col := b.db.GetCollection(name, b.ef)
	if col == nil {
		return nil, fmt.Errorf("collection %q not found", name)
	}
	return col, nil
}

func (b *ChromemBackend) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	col, err := b.collection(name)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		docs[i] = chromem.Document{
			ID:        p.ID,
			Content:   p.Chunk.Text,
			Metadata:  chunkMetadata(p.Chunk),
			Embedding: p.Vector,
		}
	}
	return col.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (b *ChromemBackend) Search(ctx context.Context, name string, vector []float32, filter Filter, limit int) ([]Hit, error) {
	col, err := b.collection(name)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 || limit <= 0 {
		return nil, nil
	}
	limit = min(limit, count)

	var where map[string]string
	if filter.DocID != "" {
		where = map[string]string{"doc_id": filter.DocID}
	}

	results, err := col.QueryEmbedding(ctx, vector, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		chunk := metadataChunk(r.Metadata)
		chunk.Text = r.Content
		hits[i] = Hit{ID: r.ID, Score: r.Similarity, Chunk: chunk}
	}
	return hits, nil
}

func (b *ChromemBackend) DeleteByDocID(ctx context.Context, name string, docID string) error {
	col, err := b.collection(name)
	if err != nil {
		return err
	}
	return col.Delete(ctx, map[string]string{"doc_id": docID}, nil)
}

func (b *ChromemBackend) Count(_ context.Context, name string) (int, error) {
	col, err := b.collection(name)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// Export writes a compressed snapshot of the whole database to path.
func (b *ChromemBackend) Export(path string) error {
	return b.db.ExportToFile(path, true, "")
}

// chromem-go keeps collection metadata private, so dimensions are tracked in
// a manifest next to the data.
func (b *ChromemBackend) loadManifest() error {
	data, err := os.ReadFile(filepath.Join(b.dir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading collection manifest: %w", err)
	}
	if err := json.Unmarshal(data, &b.infos); err != nil {
		return fmt.Errorf("parsing collection manifest: %w", err)
	}
	return nil
}

func (b *ChromemBackend) saveManifest() error {
	if b.dir == "" {
		return nil
	}
	b.mu.Lock()
	data, err := json.MarshalIndent(b.infos, "", "  ")
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(b.dir, manifestFile), data, 0o644)
}

func chunkMetadata(c Chunk) map[string]string {
	return map[string]string{
		"doc_id":          c.DocID,
		"page_num":        strconv.Itoa(c.PageNum),
		"paragraph_index": strconv.Itoa(c.ParagraphIndex),
	}
}

func metadataChunk(m map[string]string) Chunk {
	page, _ := strconv.Atoi(m["page_num"])
	para, _ := strconv.Atoi(m["paragraph_index"])
	return Chunk{
		DocID:          m["doc_id"],
		PageNum:        page,
		ParagraphIndex: para,
	}
}
