package ingest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ziadkadry99/docsynth/internal/walker"
)

// ErrUnsupported is returned for documents whose text cannot be read
// directly, such as PDFs and images.
var ErrUnsupported = errors.New("unsupported document type")

// pageBreak separates pages in plain-text exports.
const pageBreak = "\f"

// ReadPages returns the text of a document, one entry per page. Plain text
// is split on form feeds; markdown is a single page.
func ReadPages(path string, kind walker.Kind) ([]string, error) {
	if !kind.Readable() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	text = strings.TrimPrefix(text, "\uFEFF")

	if kind == walker.KindText && strings.Contains(text, pageBreak) {
		return strings.Split(text, pageBreak), nil
	}
	return []string{text}, nil
}
