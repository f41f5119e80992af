package walker

import (
	"path/filepath"
	"strings"
)

// Kind classifies a document by its file extension.
type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindPDF      Kind = "pdf"
	KindImage    Kind = "image"
	KindUnknown  Kind = "unknown"
)

var extensionToKind = map[string]Kind{
	".txt":      KindText,
	".text":     KindText,
	".log":      KindText,
	".csv":      KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".mdx":      KindMarkdown,
	".pdf":      KindPDF,
	".png":      KindImage,
	".jpg":      KindImage,
	".jpeg":     KindImage,
	".tif":      KindImage,
	".tiff":     KindImage,
	".bmp":      KindImage,
	".gif":      KindImage,
	".webp":     KindImage,
}

// DetectKind returns the document kind for a filename or path.
func DetectKind(name string) Kind {
	if k, ok := extensionToKind[strings.ToLower(filepath.Ext(name))]; ok {
		return k
	}
	return KindUnknown
}

// Readable reports whether text can be read from the kind without OCR or a
// PDF parser.
func (k Kind) Readable() bool {
	return k == KindText || k == KindMarkdown
}

// Binary reports whether files of this kind are expected to be binary.
func (k Kind) Binary() bool {
	return k == KindPDF || k == KindImage
}
