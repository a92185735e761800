package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapvault/internal/apperr"
	"github.com/snapvault/internal/version"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedDocument(t *testing.T, s *SQLiteStore, id, title, content string) {
	t.Helper()
	require.NoError(t, s.UpsertDocument(context.Background(), &Document{ID: id, Title: title, Content: content}))
}

func TestCreateVersionAssignsIncreasingNumbers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "doc1", "Doc", "<p>v0</p>")

	for i := 1; i <= 5; i++ {
		v, err := s.CreateVersion(ctx, version.CreateRequest{
			DocumentID: "doc1",
			Content:    fmt.Sprintf("<p>revision %d</p>", i),
			Type:       version.TypeManual,
		})
		require.NoError(t, err)
		assert.Equal(t, i, v.VersionNumber)
		assert.NotEmpty(t, v.ID)
		assert.NotEmpty(t, v.ContentHash)
	}

	versions, err := s.ListVersions(ctx, "doc1", 0, 0)
	require.NoError(t, err)
	require.Len(t, versions, 5)

	// Newest first, no duplicates
	seen := map[int]bool{}
	for i, v := range versions {
		assert.Equal(t, 5-i, v.VersionNumber)
		assert.False(t, seen[v.VersionNumber])
		seen[v.VersionNumber] = true
	}
}

func TestListVersionsOmitsContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "doc1", "Doc", "")

	_, err := s.CreateVersion(ctx, version.CreateRequest{DocumentID: "doc1", Content: "<p>hello world</p>"})
	require.NoError(t, err)

	versions, err := s.ListVersions(ctx, "doc1", 0, 0)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Empty(t, versions[0].Content)
	assert.Equal(t, 2, versions[0].WordCount)
}

func TestGetVersionContentReplaysHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "doc1", "Doc", "")

	// Enough versions to cross a base-entry boundary so reconstruction has
	// to replay patches from a base.
	contents := make([]string, 0, 15)
	for i := 1; i <= 15; i++ {
		c := fmt.Sprintf("<p>revision %d</p><p>shared trailer</p>", i)
		contents = append(contents, c)
		_, err := s.CreateVersion(ctx, version.CreateRequest{DocumentID: "doc1", Content: c})
		require.NoError(t, err)
	}

	for _, n := range []int{1, 2, 9, 10, 11, 15} {
		v, err := s.GetVersionContent(ctx, "doc1", n)
		require.NoError(t, err, "version %d", n)
		assert.Equal(t, contents[n-1], v.Content, "version %d", n)
		assert.Equal(t, n, v.VersionNumber)
	}
}

func TestGetVersionContentNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetVersionContent(context.Background(), "doc1", 7)
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.CategoryOf(err))
}

func TestCreateVersionRejectsEmptyContent(t *testing.T) {
	s := newTestStore(t)
	seedDocument(t, s, "doc1", "Doc", "")

	_, err := s.CreateVersion(context.Background(), version.CreateRequest{DocumentID: "doc1", Content: "<p>   </p>"})
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.CategoryOf(err))
}

func TestRestoreAsNewDoesNotMutateSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "doc1", "Original", "<p>live</p>")

	v1, err := s.CreateVersion(ctx, version.CreateRequest{DocumentID: "doc1", Content: "<p>first</p>"})
	require.NoError(t, err)
	_, err = s.CreateVersion(ctx, version.CreateRequest{DocumentID: "doc1", Content: "<p>second</p>"})
	require.NoError(t, err)

	before, err := s.ListVersions(ctx, "doc1", 0, 0)
	require.NoError(t, err)

	result, err := s.Restore(ctx, "doc1", v1.ID, version.RestoreAsNew, version.RestoreOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotEmpty(t, result.NewDocumentID)
	assert.NotEqual(t, "doc1", result.NewDocumentID)
	assert.True(t, strings.HasPrefix(result.NewDocumentID, LocalIDPrefix))

	// Source history unchanged
	after, err := s.ListVersions(ctx, "doc1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Source live content unchanged
	src, err := s.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "<p>live</p>", src.Content)

	// New document holds the restored content
	doc, err := s.GetDocument(ctx, result.NewDocumentID)
	require.NoError(t, err)
	assert.Equal(t, "<p>first</p>", doc.Content)
	assert.Equal(t, "Original (Restored)", doc.Title)
}

func TestRestoreOverwriteUnsupportedLocally(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "doc1", "Doc", "<p>live</p>")

	v, err := s.CreateVersion(ctx, version.CreateRequest{DocumentID: "doc1", Content: "<p>snapshot</p>"})
	require.NoError(t, err)

	_, err = s.Restore(ctx, "doc1", v.ID, version.RestoreOverwrite, version.RestoreOptions{})
	require.Error(t, err)
	assert.Equal(t, apperr.Unsupported, apperr.CategoryOf(err))

	// Live document untouched
	doc, err := s.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "<p>live</p>", doc.Content)
}

func TestRestoreUnknownVersion(t *testing.T) {
	s := newTestStore(t)
	seedDocument(t, s, "doc1", "Doc", "<p>live</p>")

	_, err := s.Restore(context.Background(), "doc1", "no-such-id", version.RestoreAsNew, version.RestoreOptions{})
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.CategoryOf(err))
}

func TestSetDocumentContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "doc1", "Doc", "<p>old</p>")

	require.NoError(t, s.SetDocumentContent(ctx, "doc1", "<p>new</p>"))
	doc, err := s.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "<p>new</p>", doc.Content)

	err = s.SetDocumentContent(ctx, "missing", "<p>x</p>")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.CategoryOf(err))
}

func TestListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "a", "A", "<p>a</p>")
	seedDocument(t, s, "b", "B", "<p>b</p>")

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}
