package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultTopKPerDoc is the number of chunks retrieved per document when a
// request does not say.
const DefaultTopKPerDoc = 3

// DocumentLister enumerates the registered documents.
type DocumentLister interface {
	DocumentIDs(ctx context.Context) ([]string, error)
}

// QueryRequest asks a question of a set of documents. An empty DocIDs means
// every registered document.
type QueryRequest struct {
	Question   string   `json:"question"`
	DocIDs     []string `json:"doc_ids,omitempty"`
	TopKPerDoc int      `json:"top_k_per_doc,omitempty"`
}

// ThemeRequest has the same shape as QueryRequest.
type ThemeRequest = QueryRequest

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Documents   DocumentLister
	Retriever   *Retriever
	Extraction  *ExtractionStage
	Synthesizer *Synthesizer
	DefaultTopK int
	Logger      *slog.Logger
}

// Service runs the query and theme pipelines.
type Service struct {
	docs        DocumentLister
	retriever   *Retriever
	extraction  *ExtractionStage
	synthesizer *Synthesizer
	defaultTopK int
	logger      *slog.Logger
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopKPerDoc
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		docs:        cfg.Documents,
		retriever:   cfg.Retriever,
		extraction:  cfg.Extraction,
		synthesizer: cfg.Synthesizer,
		defaultTopK: cfg.DefaultTopK,
		logger:      cfg.Logger,
	}
}

// QueryDocuments answers req.Question separately for every requested
// document. Documents without an answer are omitted; the rest keep request
// order.
func (s *Service) QueryDocuments(ctx context.Context, req QueryRequest) ([]DocumentAnswers, error) {
	docIDs, topK, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	perDoc := s.collect(ctx, req.Question, docIDs, topK)

	out := make([]DocumentAnswers, 0, len(docIDs))
	for i, answers := range perDoc {
		if len(answers) == 0 {
			continue
		}
		out = append(out, DocumentAnswers{DocID: docIDs[i], Answers: answers})
	}
	s.logger.Info("query answered",
		"documents", len(docIDs),
		"with_answers", len(out),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return out, nil
}

// IdentifyThemes pools the answers from every requested document and
// groups them into themes.
func (s *Service) IdentifyThemes(ctx context.Context, req ThemeRequest) ([]Theme, error) {
	docIDs, topK, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	var pool []SnippetRecord
	for i, answers := range s.collect(ctx, req.Question, docIDs, topK) {
		for _, a := range answers {
			pool = append(pool, SnippetRecord{DocID: docIDs[i], Text: a.Text, Citation: a.Citation})
		}
	}

	themes := s.synthesizer.Synthesize(ctx, pool, req.Question)
	s.logger.Info("themes identified",
		"documents", len(docIDs),
		"snippets", len(pool),
		"themes", len(themes),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return themes, nil
}

func (s *Service) resolve(ctx context.Context, req QueryRequest) ([]string, int, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, 0, ErrEmptyQuestion
	}

	docIDs := dedupe(req.DocIDs)
	if len(docIDs) == 0 {
		if s.docs == nil {
			return nil, 0, ErrNoDocuments
		}
		all, err := s.docs.DocumentIDs(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("listing documents: %w", err)
		}
		docIDs = all
	}
	if len(docIDs) == 0 {
		return nil, 0, ErrNoDocuments
	}

	topK := req.TopKPerDoc
	if topK <= 0 {
		topK = s.defaultTopK
	}
	return docIDs, topK, nil
}

// collect retrieves and extracts for every document concurrently. The
// result is indexed like docIDs.
func (s *Service) collect(ctx context.Context, question string, docIDs []string, topK int) [][]AnswerSnippet {
	results := make([][]AnswerSnippet, len(docIDs))
	var wg sync.WaitGroup
	for i, docID := range docIDs {
		wg.Add(1)
		go func(i int, docID string) {
			defer wg.Done()
			chunks := s.retriever.RetrieveTopK(ctx, question, docID, topK)
			if len(chunks) == 0 {
				return
			}
			results[i] = s.extraction.ExtractAll(ctx, question, chunks)
		}(i, docID)
	}
	wg.Wait()
	return results
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
