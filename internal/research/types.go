// Package research answers questions against indexed documents and groups
// the resulting evidence into themes.
package research

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ziadkadry99/docsynth/internal/vectordb"
)

// NoAnswer is the sentinel an extractor returns when a chunk does not answer
// the question.
const NoAnswer = "NO_ANSWER"

var (
	// ErrNoDocuments is returned when a request resolves to no documents.
	ErrNoDocuments = errors.New("no documents available to query")
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question must not be empty")
	// ErrBadCitation is returned by ParseCitation for malformed input.
	ErrBadCitation = errors.New("malformed citation")
)

// AnswerSnippet is one answer extracted from one chunk.
type AnswerSnippet struct {
	Text     string `json:"text"`
	Citation string `json:"citation"`
}

// DocumentAnswers holds the snippets found in a single document.
type DocumentAnswers struct {
	DocID   string          `json:"doc_id"`
	Answers []AnswerSnippet `json:"answers"`
}

// Theme is a summarized cluster of snippets spanning one or more documents.
type Theme struct {
	Name      string   `json:"theme_name"`
	Summary   string   `json:"summary"`
	Citations []string `json:"citations"`
}

// SnippetRecord is an AnswerSnippet tagged with the document it came from.
type SnippetRecord struct {
	DocID    string `json:"doc_id"`
	Text     string `json:"text"`
	Citation string `json:"citation"`
}

// Extraction is the raw result of asking an extractor about one chunk.
type Extraction struct {
	Answer   string `json:"answer"`
	Citation string `json:"citation"`
}

// IsNoAnswer reports whether the extraction carries no usable answer.
func (e Extraction) IsNoAnswer() bool {
	a := strings.TrimSpace(e.Answer)
	return a == "" || strings.EqualFold(a, NoAnswer)
}

// FormatCitation renders the citation for a chunk.
func FormatCitation(c vectordb.Chunk) string {
	return fmt.Sprintf("DocID: %s, Page: %d, Para: %d", c.DocID, c.PageNum, c.ParagraphIndex)
}

var citationRe = regexp.MustCompile(`^\s*DocID:\s*(\S+?),\s*Page:\s*(\d+),\s*Para:\s*(\d+)\s*$`)

// ParseCitation is the inverse of FormatCitation. The returned chunk has no text.
func ParseCitation(s string) (vectordb.Chunk, error) {
	m := citationRe.FindStringSubmatch(s)
	if m == nil {
		return vectordb.Chunk{}, fmt.Errorf("%w: %q", ErrBadCitation, s)
	}
	page, err := strconv.Atoi(m[2])
	if err != nil {
		return vectordb.Chunk{}, fmt.Errorf("%w: page in %q", ErrBadCitation, s)
	}
	para, err := strconv.Atoi(m[3])
	if err != nil {
		return vectordb.Chunk{}, fmt.Errorf("%w: paragraph in %q", ErrBadCitation, s)
	}
	return vectordb.Chunk{DocID: m[1], PageNum: page, ParagraphIndex: para}, nil
}

func citations(records []SnippetRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Citation
	}
	return out
}
