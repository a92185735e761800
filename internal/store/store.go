package store

import (
	"context"
	"time"

	"github.com/snapvault/internal/version"
)

// Document represents a locally stored document: the live content in guest
// mode. Remote-mode documents live on the document service and never pass
// through this store.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the local storage backend. It satisfies version.Backend and adds
// the document operations guest mode needs for live content.
type Store interface {
	version.Backend

	// Document operations
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	UpsertDocument(ctx context.Context, doc *Document) error
	SetDocumentContent(ctx context.Context, id, content string) error

	// Utility
	Close() error
}
