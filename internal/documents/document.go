// Package documents keeps the registry of ingested documents.
package documents

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a document ID is not registered.
var ErrNotFound = errors.New("document not found")

// ErrInvalidDate is returned by ParseDate for unrecognized input.
var ErrInvalidDate = errors.New("invalid date")

// Document is the metadata kept for every ingested file.
type Document struct {
	ID          string     `json:"doc_id"`
	Filename    string     `json:"filename"`
	DocType     string     `json:"doc_type"`
	Author      string     `json:"author,omitempty"`
	DocDate     *time.Time `json:"doc_date,omitempty"`
	UploadedAt  time.Time  `json:"upload_date"`
	ContentHash string     `json:"content_hash,omitempty"`
	ChunkCount  int        `json:"chunk_count"`
	SourcePath  string     `json:"source_path,omitempty"`
}

// Filter narrows List. Zero fields match everything. From and To bound the
// upload date inclusively.
type Filter struct {
	Author  string
	DocType string
	From    *time.Time
	To      *time.Time
}

// NewID returns a fresh document ID of the form doc_xxxxxxxx.
func NewID() string {
	return "doc_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
// A calendar date used as an upper bound covers the whole day.
func ParseDate(s string, upper bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t.UTC(), nil
}

// timeLayout is how timestamps are stored; it sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
