package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ziadkadry99/docsynth/internal/vectordb"
)

// AnswerExtractor pulls an answer to question out of a single chunk.
// A chunk without an answer yields an Extraction for which IsNoAnswer is true.
type AnswerExtractor interface {
	Extract(ctx context.Context, question string, chunk vectordb.Chunk) (Extraction, error)
}

// ExtractionStage runs an AnswerExtractor over many chunks concurrently.
type ExtractionStage struct {
	extractor      AnswerExtractor
	maxConcurrency int
	logger         *slog.Logger
}

// NewExtractionStage creates a stage. maxConcurrency <= 0 means one goroutine
// per chunk.
func NewExtractionStage(extractor AnswerExtractor, maxConcurrency int, logger *slog.Logger) *ExtractionStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionStage{extractor: extractor, maxConcurrency: maxConcurrency, logger: logger}
}

// slot is the tagged outcome of one extraction call.
type slot struct {
	snippet AnswerSnippet
	ok      bool
	err     error
}

// ExtractAll returns one snippet per chunk that produced a genuine answer,
// in chunk order. Failed calls are logged and left out; they never affect
// the other chunks.
func (s *ExtractionStage) ExtractAll(ctx context.Context, question string, chunks []vectordb.Chunk) []AnswerSnippet {
	if len(chunks) == 0 {
		return nil
	}

	results := make([]slot, len(chunks))
	var sem chan struct{}
	if s.maxConcurrency > 0 {
		sem = make(chan struct{}, s.maxConcurrency)
	}

	var wg sync.WaitGroup
	for i, c := range chunks {
		wg.Add(1)
		go func(i int, c vectordb.Chunk) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[i] = slot{err: ctx.Err()}
					return
				}
			}
			results[i] = s.extractOne(ctx, question, c)
		}(i, c)
	}
	wg.Wait()

	var out []AnswerSnippet
	for i, r := range results {
		if r.err != nil {
			s.logger.Error("answer extraction failed",
				"doc_id", chunks[i].DocID,
				"page", chunks[i].PageNum,
				"para", chunks[i].ParagraphIndex,
				"error", r.err,
			)
			continue
		}
		if r.ok {
			out = append(out, r.snippet)
		}
	}
	return out
}

func (s *ExtractionStage) extractOne(ctx context.Context, question string, c vectordb.Chunk) (res slot) {
	defer func() {
		if p := recover(); p != nil {
			res = slot{err: panicError{p}}
		}
	}()

	ext, err := s.extractor.Extract(ctx, question, c)
	if err != nil {
		return slot{err: err}
	}
	if ext.IsNoAnswer() {
		return slot{}
	}
	citation := strings.TrimSpace(ext.Citation)
	if citation == "" {
		citation = FormatCitation(c)
	}
	return slot{
		snippet: AnswerSnippet{Text: strings.TrimSpace(ext.Answer), Citation: citation},
		ok:      true,
	}
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("extractor panicked: %v", p.v) }
