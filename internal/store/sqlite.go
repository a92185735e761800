package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/snapvault/internal/apperr"
	"github.com/snapvault/internal/content"
	"github.com/snapvault/internal/version"
)

// LocalIDPrefix marks document ids minted by the local store. The remote
// client strips it before calling the document service.
const LocalIDPrefix = "local-"

// baseInterval controls how often the history log stores a full-text base
// entry instead of a patch against the previous version.
const baseInterval = 10

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewSQLiteStore creates a new SQLite store and initializes the schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, dmp: diffmatchpatch.New()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS versions (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id),
		version_number INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		change_summary TEXT NOT NULL DEFAULT '',
		word_count INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT NOT NULL DEFAULT '',
		UNIQUE(document_id, version_number)
	);

	CREATE TABLE IF NOT EXISTS history (
		document_id TEXT NOT NULL,
		version_number INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (document_id, version_number)
	);

	CREATE INDEX IF NOT EXISTS idx_versions_document_id ON versions(document_id);
	CREATE INDEX IF NOT EXISTS idx_versions_created_at ON versions(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetDocument retrieves a document by id
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	var d Document
	var createdAt, updatedAt sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, created_at, updated_at
		FROM documents WHERE id = ?
	`, id).Scan(&d.ID, &d.Title, &d.Content, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.NotFound, "document %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if createdAt.Valid {
		d.CreatedAt = parseTime(createdAt.String)
	}
	if updatedAt.Valid {
		d.UpdatedAt = parseTime(updatedAt.String)
	}

	return &d, nil
}

// UpsertDocument creates or updates a document record
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			updated_at = CURRENT_TIMESTAMP
	`, doc.ID, doc.Title, doc.Content)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// ListDocuments returns all locally stored documents
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, created_at, updated_at FROM documents ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var createdAt, updatedAt sql.NullString
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		if createdAt.Valid {
			d.CreatedAt = parseTime(createdAt.String)
		}
		if updatedAt.Valid {
			d.UpdatedAt = parseTime(updatedAt.String)
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// SetDocumentContent replaces a document's live content
func (s *SQLiteStore) SetDocumentContent(ctx context.Context, id, content string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, content, id)
	if err != nil {
		return fmt.Errorf("failed to set document content: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperr.Newf(apperr.NotFound, "document %s not found", id)
	}
	return nil
}

// ListVersions returns version metadata newest-first. Content is never
// stored on metadata rows; it is reconstructed on demand from the history
// log by GetVersionContent.
func (s *SQLiteStore) ListVersions(ctx context.Context, documentID string, limit, offset int) ([]version.Version, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, version_number, title, change_summary, word_count, created_by, created_at, type, size_bytes, content_hash
		FROM versions WHERE document_id = ?
		ORDER BY version_number DESC
		LIMIT ? OFFSET ?
	`, documentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	return scanVersions(rows)
}

// GetVersionContent returns the full version, reconstructing content by
// replaying the history log from the nearest base entry.
func (s *SQLiteStore) GetVersionContent(ctx context.Context, documentID string, versionNumber int) (*version.Version, error) {
	v, err := s.getVersionMeta(ctx, documentID, versionNumber)
	if err != nil {
		return nil, err
	}

	text, err := s.reconstruct(ctx, documentID, versionNumber)
	if err != nil {
		return nil, err
	}
	v.Content = text

	return v, nil
}

// CreateVersion captures a new snapshot, assigning the next version number
// for the document and appending to the history log.
func (s *SQLiteStore) CreateVersion(ctx context.Context, req version.CreateRequest) (*version.Version, error) {
	plain := content.ToPlainText(req.Content)
	if strings.TrimSpace(plain) == "" {
		return nil, apperr.New(apperr.Validation, "snapshot content is empty", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version_number), 0) + 1 FROM versions WHERE document_id = ?
	`, req.DocumentID).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("failed to assign version number: %w", err)
	}

	kind, payload := "base", req.Content
	if (next-1)%baseInterval != 0 {
		prev, err := s.reconstructTx(ctx, tx, req.DocumentID, next-1)
		if err == nil {
			patches := s.dmp.PatchMake(prev, req.Content)
			kind, payload = "delta", s.dmp.PatchToText(patches)
		}
		// A gap in the log (previous version missing) falls back to a base
		// entry so reconstruction stays possible.
	}

	v := &version.Version{
		ID:            uuid.NewString(),
		DocumentID:    req.DocumentID,
		VersionNumber: next,
		Title:         req.Title,
		ChangeSummary: req.ChangeSummary,
		WordCount:     content.WordCount(plain),
		CreatedByID:   req.CreatedByID,
		CreatedAt:     time.Now().UTC(),
		Type:          req.Type,
		SizeBytes:     int64(len(req.Content)),
		ContentHash:   HashContent(req.Content),
	}
	if v.Type == "" {
		v.Type = version.TypeManual
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO versions (id, document_id, version_number, title, change_summary, word_count, created_by, created_at, type, size_bytes, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.DocumentID, v.VersionNumber, v.Title, v.ChangeSummary, v.WordCount, v.CreatedByID, v.CreatedAt, string(v.Type), v.SizeBytes, v.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history (document_id, version_number, kind, payload)
		VALUES (?, ?, ?, ?)
	`, v.DocumentID, v.VersionNumber, kind, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to append history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit version: %w", err)
	}

	return v, nil
}

// Restore applies a restore action in guest mode. Overwrite is not available
// without an authenticated backend and is reported as a handled limitation.
func (s *SQLiteStore) Restore(ctx context.Context, documentID, versionID string, action version.RestoreAction, opts version.RestoreOptions) (*version.RestoreResult, error) {
	if !action.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown restore action %q", action)
	}
	if action == version.RestoreOverwrite {
		return nil, apperr.New(apperr.Unsupported, "overwrite restore is not available in guest mode; restore as a new document instead", nil)
	}

	v, err := s.getVersionByID(ctx, documentID, versionID)
	if err != nil {
		return nil, err
	}

	text, err := s.reconstruct(ctx, documentID, v.VersionNumber)
	if err != nil {
		return nil, err
	}

	title := opts.NewTitle
	if title == "" {
		src, err := s.GetDocument(ctx, documentID)
		if err == nil && src.Title != "" {
			title = src.Title + " (Restored)"
		} else {
			title = "Untitled (Restored)"
		}
	}

	newID := LocalIDPrefix + uuid.NewString()
	if err := s.UpsertDocument(ctx, &Document{ID: newID, Title: title, Content: text}); err != nil {
		return nil, err
	}

	_, err = s.CreateVersion(ctx, version.CreateRequest{
		DocumentID:    newID,
		Content:       text,
		Title:         title,
		ChangeSummary: fmt.Sprintf("Restored from version %d of %s", v.VersionNumber, documentID),
		Type:          version.TypeManual,
	})
	if err != nil {
		return nil, err
	}

	return &version.RestoreResult{
		Success:       true,
		Action:        string(version.RestoreAsNew),
		Message:       fmt.Sprintf("Restored version %d as a new document", v.VersionNumber),
		NewDocumentID: newID,
	}, nil
}

// getVersionMeta loads a metadata row by version number.
func (s *SQLiteStore) getVersionMeta(ctx context.Context, documentID string, versionNumber int) (*version.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, version_number, title, change_summary, word_count, created_by, created_at, type, size_bytes, content_hash
		FROM versions WHERE document_id = ? AND version_number = ?
	`, documentID, versionNumber)
	return scanVersion(row)
}

// getVersionByID loads a metadata row by version id.
func (s *SQLiteStore) getVersionByID(ctx context.Context, documentID, versionID string) (*version.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, version_number, title, change_summary, word_count, created_by, created_at, type, size_bytes, content_hash
		FROM versions WHERE document_id = ? AND id = ?
	`, documentID, versionID)
	return scanVersion(row)
}

// reconstruct rebuilds version content by replaying the history log.
func (s *SQLiteStore) reconstruct(ctx context.Context, documentID string, versionNumber int) (string, error) {
	return s.reconstructTx(ctx, s.db, documentID, versionNumber)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLiteStore) reconstructTx(ctx context.Context, q querier, documentID string, versionNumber int) (string, error) {
	var baseNum int
	var baseText string
	err := q.QueryRowContext(ctx, `
		SELECT version_number, payload FROM history
		WHERE document_id = ? AND version_number <= ? AND kind = 'base'
		ORDER BY version_number DESC LIMIT 1
	`, documentID, versionNumber).Scan(&baseNum, &baseText)
	if err == sql.ErrNoRows {
		return "", apperr.Newf(apperr.NotFound, "version %d of document %s not found", versionNumber, documentID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load history base: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT kind, payload FROM history
		WHERE document_id = ? AND version_number > ? AND version_number <= ?
		ORDER BY version_number ASC
	`, documentID, baseNum, versionNumber)
	if err != nil {
		return "", fmt.Errorf("failed to load history deltas: %w", err)
	}
	defer rows.Close()

	text := baseText
	for rows.Next() {
		var kind, payload string
		if err := rows.Scan(&kind, &payload); err != nil {
			return "", fmt.Errorf("failed to scan history row: %w", err)
		}
		if kind == "base" {
			text = payload
			continue
		}
		patches, err := s.dmp.PatchFromText(payload)
		if err != nil {
			return "", fmt.Errorf("corrupt history patch: %w", err)
		}
		text, _ = s.dmp.PatchApply(patches, text)
	}

	return text, rows.Err()
}

// scanVersion scans a single metadata row.
func scanVersion(row *sql.Row) (*version.Version, error) {
	var v version.Version
	var createdAt sql.NullString
	var typ string

	err := row.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.Title, &v.ChangeSummary, &v.WordCount, &v.CreatedByID, &createdAt, &typ, &v.SizeBytes, &v.ContentHash)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "version not found", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	v.Type = version.Type(typ)
	if createdAt.Valid {
		v.CreatedAt = parseTime(createdAt.String)
	}

	return &v, nil
}

// scanVersions is a helper to scan multiple metadata rows
func scanVersions(rows *sql.Rows) ([]version.Version, error) {
	var versions []version.Version
	for rows.Next() {
		var v version.Version
		var createdAt sql.NullString
		var typ string

		err := rows.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.Title, &v.ChangeSummary, &v.WordCount, &v.CreatedByID, &createdAt, &typ, &v.SizeBytes, &v.ContentHash)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}

		v.Type = version.Type(typ)
		if createdAt.Valid {
			v.CreatedAt = parseTime(createdAt.String)
		}

		versions = append(versions, v)
	}

	return versions, rows.Err()
}

// HashContent returns the hex SHA-256 of content, used to skip redundant
// auto-snapshots.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// parseTime parses a SQLite datetime string into time.Time
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	// Try various SQLite datetime formats
	formats := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05.000Z",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
