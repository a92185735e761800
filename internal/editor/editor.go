// Package editor defines the capability surface this subsystem consumes from
// the rich-text editing engine. The engine itself (CRDT sync, toolbars,
// markdown views) lives outside this module.
package editor

import (
	"context"

	"github.com/snapvault/internal/content"
	"github.com/snapvault/internal/store"
)

// Editor exposes the live document to the versioning core. The live document
// is read-only here except for ReplaceContent, which is used only for
// guest-mode overwrite and for accepting a restore-as-new preview before
// navigation.
type Editor interface {
	CurrentPlainText(ctx context.Context) (string, error)
	CurrentHTML(ctx context.Context) (string, error)
	ReplaceContent(ctx context.Context, html string) error
}

// DocumentEditor adapts a locally stored document to the Editor interface.
// In guest mode the local store's document row is the live document.
type DocumentEditor struct {
	store      store.Store
	documentID string
}

// NewDocumentEditor wraps the given document.
func NewDocumentEditor(st store.Store, documentID string) *DocumentEditor {
	return &DocumentEditor{store: st, documentID: documentID}
}

// CurrentHTML returns the live document content.
func (e *DocumentEditor) CurrentHTML(ctx context.Context) (string, error) {
	doc, err := e.store.GetDocument(ctx, e.documentID)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// CurrentPlainText returns the live document normalized to plain text. The
// block-join convention matches content.ToPlainText so snapshot and live
// text diff cleanly.
func (e *DocumentEditor) CurrentPlainText(ctx context.Context) (string, error) {
	html, err := e.CurrentHTML(ctx)
	if err != nil {
		return "", err
	}
	return content.ToPlainText(html), nil
}

// ReplaceContent overwrites the live document content.
func (e *DocumentEditor) ReplaceContent(ctx context.Context, html string) error {
	return e.store.SetDocumentContent(ctx, e.documentID, html)
}
