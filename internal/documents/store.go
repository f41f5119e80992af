package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/docsynth/internal/db"
)

// Store provides CRUD operations for documents.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create registers doc. An empty ID is generated and a zero UploadedAt is
// set to now; both are written back into doc.
func (s *Store) Create(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = NewID()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	doc.UploadedAt = doc.UploadedAt.UTC().Truncate(time.Millisecond)

	var docDate sql.NullString
	if doc.DocDate != nil {
		docDate = sql.NullString{String: formatTime(*doc.DocDate), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (
			doc_id, filename, doc_type, author, doc_date, upload_date,
			content_hash, chunk_count, source_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.Filename,
		doc.DocType,
		doc.Author,
		docDate,
		formatTime(doc.UploadedAt),
		doc.ContentHash,
		doc.ChunkCount,
		doc.SourcePath,
	)
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}
	return nil
}

const selectColumns = `SELECT doc_id, filename, doc_type, author, doc_date, upload_date,
	content_hash, chunk_count, source_path FROM documents`

// Get returns the document with the given ID or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE doc_id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, err
}

// FindByHash returns a document with the given content hash, or nil.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Document, error) {
	if hash == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE content_hash = ? ORDER BY upload_date LIMIT 1", hash)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

// List returns documents matching filter, oldest upload first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Document, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Author != "" {
		clauses = append(clauses, "author = ?")
		args = append(args, filter.Author)
	}
	if filter.DocType != "" {
		clauses = append(clauses, "doc_type = ?")
		args = append(args, filter.DocType)
	}
	if filter.From != nil {
		clauses = append(clauses, "upload_date >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		clauses = append(clauses, "upload_date <= ?")
		args = append(args, formatTime(*filter.To))
	}

	query := selectColumns
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY upload_date, doc_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// DocumentIDs returns every registered ID, oldest upload first.
func (s *Store) DocumentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT doc_id FROM documents ORDER BY upload_date, doc_id")
	if err != nil {
		return nil, fmt.Errorf("listing document ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetChunkCount records how many chunks were indexed for a document.
func (s *Store) SetChunkCount(ctx context.Context, id string, n int) error {
	res, err := s.db.ExecContext(ctx, "UPDATE documents SET chunk_count = ? WHERE doc_id = ?", n, id)
	if err != nil {
		return fmt.Errorf("updating chunk count of %s: %w", id, err)
	}
	return requireOne(res, id)
}

// Delete removes a document record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE doc_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return requireOne(res, id)
}

func requireOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*Document, error) {
	var (
		d        Document
		docDate  sql.NullString
		uploaded string
	)
	err := sc.Scan(
		&d.ID, &d.Filename, &d.DocType, &d.Author, &docDate, &uploaded,
		&d.ContentHash, &d.ChunkCount, &d.SourcePath,
	)
	if err != nil {
		return nil, err
	}
	d.UploadedAt = parseTime(uploaded)
	if docDate.Valid {
		if t := parseTime(docDate.String); !t.IsZero() {
			d.DocDate = &t
		}
	}
	return &d, nil
}
