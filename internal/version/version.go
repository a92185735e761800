package version

import (
	"time"
)

// Type classifies how a version came to exist.
type Type string

const (
	TypeManual        Type = "manual"
	TypeAuto          Type = "auto"
	TypeRestoreBackup Type = "restore-backup"
)

// RestoreAction selects what a restore does with the snapshot content.
type RestoreAction string

const (
	// RestoreAsNew creates a fresh document from the snapshot and never
	// touches the source document.
	RestoreAsNew RestoreAction = "new_document"
	// RestoreOverwrite replaces the live document content. Backend
	// authoritative, blocked while a collaboration session is active.
	RestoreOverwrite RestoreAction = "overwrite"
)

// Valid reports whether the action is a known restore action.
func (a RestoreAction) Valid() bool {
	return a == RestoreAsNew || a == RestoreOverwrite
}

// Version is an immutable, numbered capture of document content at a point
// in time. Content may be empty on list responses and fetched lazily.
type Version struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	Title         string    `json:"title,omitempty"`
	Content       string    `json:"content,omitempty"`
	HTMLPreview   string    `json:"html_preview,omitempty"`
	ChangeSummary string    `json:"change_summary,omitempty"`
	WordCount     int       `json:"word_count"`
	CreatedByID   string    `json:"created_by_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Type          Type      `json:"type"`
	SizeBytes     int64     `json:"size_bytes,omitempty"`
	ContentHash   string    `json:"content_hash,omitempty"`
}

// HasContent reports whether full content is already loaded.
func (v *Version) HasContent() bool {
	return v.Content != ""
}

// CreateRequest carries the inputs for capturing a new version. The backend
// assigns the version number and timestamps.
type CreateRequest struct {
	DocumentID    string `json:"document_id"`
	Content       string `json:"content"`
	Title         string `json:"title,omitempty"`
	ChangeSummary string `json:"change_summary,omitempty"`
	CreatedByID   string `json:"created_by_id,omitempty"`
	Type          Type   `json:"type"`
}

// RestoreOptions tunes a restore call.
type RestoreOptions struct {
	NewTitle string `json:"new_title,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

// RestoreResult reports the outcome of a successful restore.
type RestoreResult struct {
	Success         bool   `json:"success"`
	Action          string `json:"action"`
	Message         string `json:"message"`
	NewDocumentID   string `json:"new_document_id,omitempty"`
	BackupVersionID string `json:"backup_version_id,omitempty"`
}

// Permissions is the capability object handed to the subsystem by the
// sharing layer. It gates which actions are attempted; the backend remains
// the final authority and may still reject.
type Permissions struct {
	CanRestoreAsNew     bool `json:"can_restore_as_new"`
	CanOverwriteRestore bool `json:"can_overwrite_restore"`
	CanEdit             bool `json:"can_edit"`
}

// AuthState is the caller's authentication snapshot at the moment of a call.
type AuthState struct {
	Authenticated bool
	UserID        string
	Permissions   Permissions
}
