package ingest

import (
	"strings"

	"github.com/ziadkadry99/docsynth/internal/vectordb"
)

// ChunkOptions controls word windowing.
type ChunkOptions struct {
	MaxWords int // Words per chunk.
	Overlap  int // Words shared by consecutive chunks.
}

// DefaultChunkOptions returns 300-word windows overlapping by 50 words.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{MaxWords: 300, Overlap: 50}
}

func (o ChunkOptions) normalized() ChunkOptions {
	d := DefaultChunkOptions()
	if o.MaxWords <= 0 {
		return d
	}
	if o.Overlap < 0 || o.Overlap >= o.MaxWords {
		o.Overlap = min(d.Overlap, o.MaxWords-1)
	}
	return o
}

// ChunkText splits text into windows of at most MaxWords words. Each window
// after the first starts Overlap words before the previous one ended.
// Whitespace is collapsed to single spaces.
func ChunkText(text string, opts ChunkOptions) []string {
	opts = opts.normalized()
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= opts.MaxWords {
		return []string{strings.Join(words, " ")}
	}

	var chunks []string
	for start := 0; start < len(words); start = start + opts.MaxWords - opts.Overlap {
		end := min(start+opts.MaxWords, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// ChunkDocument chunks every page of a document. Pages and paragraphs are
// numbered from 1; blank pages produce no chunks but still take a number.
func ChunkDocument(docID string, pages []string, opts ChunkOptions) []vectordb.Chunk {
	var out []vectordb.Chunk
	for p, page := range pages {
		for i, text := range ChunkText(page, opts) {
			out = append(out, vectordb.Chunk{
				DocID:          docID,
				PageNum:        p + 1,
				ParagraphIndex: i + 1,
				Text:           text,
			})
		}
	}
	return out
}
