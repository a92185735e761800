package version

import (
	"context"
)

// Backend is the uniform shape both storage backends adapt to. Callers never
// branch on which backend is active.
type Backend interface {
	// ListVersions returns version metadata newest-first. Content is not
	// guaranteed to be populated; use GetVersionContent before previewing.
	ListVersions(ctx context.Context, documentID string, limit, offset int) ([]Version, error)

	// GetVersionContent returns the full version including content.
	GetVersionContent(ctx context.Context, documentID string, versionNumber int) (*Version, error)

	// CreateVersion captures a new snapshot and assigns it the next version
	// number for the document.
	CreateVersion(ctx context.Context, req CreateRequest) (*Version, error)

	// Restore applies a restore action for the identified version.
	Restore(ctx context.Context, documentID, versionID string, action RestoreAction, opts RestoreOptions) (*RestoreResult, error)
}

// AuthFunc reports the caller's authentication state at the moment of a call.
type AuthFunc func() AuthState

// Repository fronts the two storage backends. Backend selection is a pure
// function of the auth state at call time and is never cached, so a session
// change between calls switches backends cleanly.
type Repository struct {
	local  Backend
	remote Backend
	auth   AuthFunc
}

// NewRepository builds a repository over the local and remote backends.
func NewRepository(local, remote Backend, auth AuthFunc) *Repository {
	return &Repository{local: local, remote: remote, auth: auth}
}

// Auth returns the current authentication state.
func (r *Repository) Auth() AuthState {
	return r.auth()
}

func (r *Repository) backend() Backend {
	if r.auth().Authenticated {
		return r.remote
	}
	return r.local
}

// ListVersions lists version metadata for a document, newest first.
func (r *Repository) ListVersions(ctx context.Context, documentID string, limit, offset int) ([]Version, error) {
	return r.backend().ListVersions(ctx, documentID, limit, offset)
}

// GetVersionContent fetches a version with its full content.
func (r *Repository) GetVersionContent(ctx context.Context, documentID string, versionNumber int) (*Version, error) {
	return r.backend().GetVersionContent(ctx, documentID, versionNumber)
}

// CreateVersion captures a new snapshot on the active backend.
func (r *Repository) CreateVersion(ctx context.Context, req CreateRequest) (*Version, error) {
	return r.backend().CreateVersion(ctx, req)
}

// Restore issues a restore against the active backend.
func (r *Repository) Restore(ctx context.Context, documentID, versionID string, action RestoreAction, opts RestoreOptions) (*RestoreResult, error) {
	return r.backend().Restore(ctx, documentID, versionID, action, opts)
}
