// Package audit keeps an activity log of what was done to the document
// collection: uploads, ingests, deletions, queries and theme runs.
package audit

import (
	"errors"
	"time"
)

// ErrNotFound is returned by GetByID for an unknown entry.
var ErrNotFound = errors.New("audit entry not found")

// ActorType identifies the surface an action came through.
type ActorType string

const (
	ActorAPI ActorType = "api"
	ActorCLI ActorType = "cli"
	ActorMCP ActorType = "mcp"
)

// Action describes what was done.
type Action string

const (
	ActionDocumentUploaded Action = "document_uploaded"
	ActionDocumentIngested Action = "document_ingested"
	ActionDocumentDeleted  Action = "document_deleted"
	ActionDocumentsQueried Action = "documents_queried"
	ActionThemesIdentified Action = "themes_identified"
)

// Entry is a single activity record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorType ActorType `json:"actor_type"`
	Action    Action    `json:"action"`
	DocIDs    []string  `json:"doc_ids"`
	Question  string    `json:"question,omitempty"`
	Summary   string    `json:"summary"`
}
