// Package ingest turns files into registered, chunked and indexed documents.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ziadkadry99/docsynth/internal/documents"
	"github.com/ziadkadry99/docsynth/internal/embeddings"
	"github.com/ziadkadry99/docsynth/internal/vectordb"
	"github.com/ziadkadry99/docsynth/internal/walker"
)

// ErrInvalidFilename is returned for upload names that could escape the
// upload directory.
var ErrInvalidFilename = errors.New("invalid filename")

// Status is the outcome of ingesting one file.
type Status string

const (
	StatusIndexed   Status = "indexed"
	StatusSkipped   Status = "skipped"
	StatusDuplicate Status = "duplicate"
	StatusError     Status = "error"
)

// Result reports what happened to one file.
type Result struct {
	DocID    string `json:"doc_id,omitempty"`
	Filename string `json:"filename"`
	Status   Status `json:"status"`
	Detail   string `json:"detail"`
	Chunks   int    `json:"chunks,omitempty"`
}

// Metadata is optional information supplied with a document.
type Metadata struct {
	Author  string
	DocDate *time.Time
}

// Options configures a Pipeline.
type Options struct {
	Store     *documents.Store
	Index     *vectordb.Index
	Embedder  embeddings.Embedder
	UploadDir string
	Chunking  ChunkOptions
	Logger    *slog.Logger
}

// Pipeline registers documents, chunks their text and indexes the chunks.
type Pipeline struct {
	store     *documents.Store
	index     *vectordb.Index
	embedder  embeddings.Embedder
	uploadDir string
	chunking  ChunkOptions
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		store:     opts.Store,
		index:     opts.Index,
		embedder:  opts.Embedder,
		uploadDir: opts.UploadDir,
		chunking:  opts.Chunking.normalized(),
		logger:    opts.Logger,
	}
}

// ValidateFilename rejects empty names, absolute paths and names containing
// directory components.
func ValidateFilename(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	case strings.Contains(name, ".."), filepath.IsAbs(name), strings.HasPrefix(name, "/"):
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFilename, name)
	}
	return nil
}

// Upload stores the content of r under the upload directory as a new
// document and indexes it. Unsupported types are skipped without being
// stored. If the text cannot be extracted the document is rolled back.
func (p *Pipeline) Upload(ctx context.Context, filename string, r io.Reader, meta Metadata) Result {
	res := Result{Filename: filename}
	if err := ValidateFilename(filename); err != nil {
		return res.fail(err)
	}
	kind := walker.DetectKind(filename)
	if !kind.Readable() {
		res.Status = StatusSkipped
		res.Detail = fmt.Sprintf("Unsupported file type: %s", filename)
		p.logger.Warn("skipping unsupported upload", "filename", filename, "kind", kind)
		return res
	}

	docID := documents.NewID()
	dir := filepath.Join(p.uploadDir, docID)
	dest := filepath.Join(dir, filename)
	hash, err := saveFile(dest, r)
	if err != nil {
		os.RemoveAll(dir)
		return res.fail(fmt.Errorf("saving %s: %w", filename, err))
	}

	doc := &documents.Document{
		ID:          docID,
		Filename:    filename,
		DocType:     string(kind),
		Author:      meta.Author,
		DocDate:     meta.DocDate,
		ContentHash: hash,
		SourcePath:  dest,
	}
	return p.register(ctx, doc, kind, func() { os.RemoveAll(dir) })
}

// IngestFile registers and indexes a file in place. A file whose content
// is already registered is reported as a duplicate and left alone.
func (p *Pipeline) IngestFile(ctx context.Context, f walker.FileInfo, meta Metadata) Result {
	res := Result{Filename: f.RelPath}
	if !f.Kind.Readable() {
		res.Status = StatusSkipped
		res.Detail = fmt.Sprintf("Unsupported file type: %s", f.RelPath)
		return res
	}

	existing, err := p.store.FindByHash(ctx, f.ContentHash)
	if err != nil {
		return res.fail(err)
	}
	if existing != nil {
		res.DocID = existing.ID
		res.Status = StatusDuplicate
		res.Detail = fmt.Sprintf("Already ingested as %s.", existing.ID)
		return res
	}

	doc := &documents.Document{
		Filename:    filepath.Base(f.Path),
		DocType:     string(f.Kind),
		Author:      meta.Author,
		DocDate:     meta.DocDate,
		ContentHash: f.ContentHash,
		SourcePath:  f.Path,
	}
	res = p.register(ctx, doc, f.Kind, func() {})
	res.Filename = f.RelPath
	return res
}

func (p *Pipeline) register(ctx context.Context, doc *documents.Document, kind walker.Kind, cleanup func()) Result {
	res := Result{Filename: doc.Filename}
	if err := p.store.Create(ctx, doc); err != nil {
		cleanup()
		return res.fail(err)
	}
	res.DocID = doc.ID
	log := p.logger.With("doc_id", doc.ID, "filename", doc.Filename)

	pages, err := ReadPages(doc.SourcePath, kind)
	if err != nil {
		log.Error("extraction failed, rolling back", "error", err)
		if derr := p.store.Delete(ctx, doc.ID); derr != nil {
			log.Error("rollback failed", "error", derr)
		}
		cleanup()
		return res.fail(fmt.Errorf("extraction error for %s: %w", doc.ID, err))
	}
	chunks := ChunkDocument(doc.ID, pages, p.chunking)

	report, err := p.index.IndexChunks(ctx, p.embedder, chunks)
	if err != nil {
		log.Error("indexing failed", "error", err)
		return res.fail(fmt.Errorf("indexing error for %s: %w", doc.ID, err))
	}
	if err := p.store.SetChunkCount(ctx, doc.ID, report.Upserted); err != nil {
		log.Warn("recording chunk count failed", "error", err)
	}

	res.Status = StatusIndexed
	res.Chunks = report.Upserted
	res.Detail = fmt.Sprintf("%d chunks indexed.", report.Upserted)
	if lost := len(chunks) - report.Upserted; lost > 0 {
		res.Detail = fmt.Sprintf("%d of %d chunks indexed.", report.Upserted, len(chunks))
	}
	log.Info("document ingested", "chunks", len(chunks), "indexed", report.Upserted)
	return res
}

// Delete removes a document: its stored upload, its record and its vectors.
func (p *Pipeline) Delete(ctx context.Context, docID string) error {
	doc, err := p.store.Get(ctx, docID)
	if err != nil {
		return err
	}

	if p.uploadDir != "" {
		dir := filepath.Join(p.uploadDir, doc.ID)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing files of %s: %w", doc.ID, err)
		}
	}
	if err := p.store.Delete(ctx, doc.ID); err != nil {
		return err
	}
	if err := p.index.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("deleting embeddings of %s: %w", doc.ID, err)
	}
	p.logger.Info("document deleted", "doc_id", doc.ID)
	return nil
}

func (r Result) fail(err error) Result {
	r.Status = StatusError
	r.Detail = err.Error()
	return r
}

func saveFile(dest string, r io.Reader) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, h), r); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
