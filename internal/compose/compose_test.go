package compose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapvault/internal/content"
	"github.com/snapvault/internal/version"
)

func TestComposeAppendedParagraph(t *testing.T) {
	v := &version.Version{
		ID:            "v3",
		VersionNumber: 3,
		Content:       "<p>Intro paragraph</p><p>Body</p>",
		CreatedAt:     time.Now(),
	}
	liveHTML := "<p>Intro paragraph</p><p>Body</p><p>Conclusion</p>"
	livePlain := content.ToPlainText(liveHTML)

	p := Compose(v, liveHTML, livePlain, time.Now())

	require.NotNil(t, p.Diff)
	assert.True(t, p.Diff.HasChanges)
	assert.False(t, p.NoDifferences)

	var added, removed []string
	for _, seg := range p.VisibleSegments() {
		switch {
		case seg.Added:
			added = append(added, seg.Value)
		case seg.Removed:
			removed = append(removed, seg.Value)
		}
	}
	require.Len(t, added, 1, "a pure append shows exactly one added segment")
	assert.Contains(t, added[0], "Conclusion")
	assert.Empty(t, removed)

	assert.Equal(t, 3, p.Stats.Version.Words)
	assert.Equal(t, 4, p.Stats.Current.Words)
	assert.Equal(t, -1, p.Stats.WordDelta, "snapshot minus live")

	assert.Equal(t, "Intro paragraph\n\nBody", p.PlainText)
	assert.Equal(t, "v3", p.VersionID)
	assert.Equal(t, 3, p.VersionNumber)
}

func TestComposeIdenticalContent(t *testing.T) {
	v := &version.Version{Content: "<p>Same text</p>", CreatedAt: time.Now()}
	liveHTML := "<p>Same text</p>"

	p := Compose(v, liveHTML, content.ToPlainText(liveHTML), time.Now())

	assert.True(t, p.NoDifferences)
	assert.False(t, p.Diff.HasChanges)
	assert.Zero(t, p.Stats.WordDelta)
	assert.Zero(t, p.Stats.CharDelta)
}

func TestComposeFallsBackToHTMLPreview(t *testing.T) {
	v := &version.Version{
		HTMLPreview: "<p>Cached preview</p>",
		CreatedAt:   time.Now(),
	}

	p := Compose(v, "<p>Live</p>", "Live", time.Now())

	assert.Equal(t, "Cached preview", p.PlainText)
	assert.Contains(t, p.SideBySide.VersionHTML, "Cached preview")
	assert.Contains(t, p.SideBySide.CurrentHTML, "Live")
}

func TestComposeSideBySideRendersBothSides(t *testing.T) {
	v := &version.Version{Content: "<heading level=\"2\">Old Title</heading>", CreatedAt: time.Now()}
	liveHTML := "<h2>New Title</h2>"

	p := Compose(v, liveHTML, content.ToPlainText(liveHTML), time.Now())

	assert.Contains(t, p.SideBySide.VersionHTML, "<h2>Old Title</h2>")
	assert.Contains(t, p.SideBySide.CurrentHTML, "<h2>New Title</h2>")
	assert.Equal(t, p.RenderedHTML, p.SideBySide.VersionHTML)
}

func TestClipboardTextIsPlainText(t *testing.T) {
	v := &version.Version{Content: "<p>First</p><p>Second <strong>bold</strong></p>"}
	assert.Equal(t, "First\n\nSecond bold", ClipboardText(v))

	empty := &version.Version{HTMLPreview: "<p>preview only</p>"}
	assert.Equal(t, "preview only", ClipboardText(empty))
}

func TestVisibleSegmentsFiltersWhitespace(t *testing.T) {
	v := &version.Version{Content: "<p>Intro</p><p>Body</p>", CreatedAt: time.Now()}
	liveHTML := "<p>Intro</p><p>Body</p><p>End</p>"

	p := Compose(v, liveHTML, content.ToPlainText(liveHTML), time.Now())

	for _, seg := range p.VisibleSegments() {
		assert.NotEmpty(t, seg.Value)
		if seg.Added || seg.Removed {
			assert.False(t, seg.WhitespaceOnly())
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		age  time.Duration
		want string
	}{
		{0, "just now"},
		{5 * time.Second, "just now"},
		{30 * time.Second, "30 seconds ago"},
		{90 * time.Second, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{26 * time.Hour, "1 day ago"},
		{5 * 24 * time.Hour, "5 days ago"},
		{70 * 24 * time.Hour, "2 months ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeTime(now.Add(-tt.age), now), "age %s", tt.age)
	}

	// Future timestamps from clock skew read as fresh, not negative.
	assert.Equal(t, "just now", RelativeTime(now.Add(time.Minute), now))
}
