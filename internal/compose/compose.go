// Package compose assembles the preview, side-by-side, and diff views shown
// when a user inspects a version against the live document.
package compose

import (
	"fmt"
	"time"

	"github.com/snapvault/internal/content"
	"github.com/snapvault/internal/diff"
	"github.com/snapvault/internal/version"
)

// justNowThreshold is how fresh a timestamp must be to read "just now".
const justNowThreshold = 10 * time.Second

// Counts holds word and character counts for one side of a comparison.
type Counts struct {
	Words int `json:"words"`
	Chars int `json:"chars"`
}

// Stats compares the snapshot against the live document. Deltas are signed
// snapshot-minus-live.
type Stats struct {
	Version   Counts `json:"version"`
	Current   Counts `json:"current"`
	WordDelta int    `json:"word_delta"`
	CharDelta int    `json:"char_delta"`
}

// SideBySide pairs the rendered snapshot with the rendered live document.
type SideBySide struct {
	VersionHTML string `json:"version_html"`
	CurrentHTML string `json:"current_html"`
}

// Preview is everything the version panel needs to show one snapshot.
type Preview struct {
	VersionID     string       `json:"version_id"`
	VersionNumber int          `json:"version_number"`
	RenderedHTML  string       `json:"rendered_html"`
	SideBySide    SideBySide   `json:"side_by_side"`
	Diff          *diff.Result `json:"diff"`
	Stats         Stats        `json:"stats"`
	RelativeTime  string       `json:"relative_time"`
	PlainText     string       `json:"plain_text"`
	NoDifferences bool         `json:"no_differences"`
}

// Compose builds the three comparison views for a version against the live
// document. livePlain must come from the live editor's own plain-text
// extraction so block separators line up with the normalizer's.
func Compose(v *version.Version, liveHTML, livePlain string, now time.Time) *Preview {
	versionHTML := v.Content
	if versionHTML == "" {
		// Metadata-only versions carry a cached preview instead.
		versionHTML = v.HTMLPreview
	}

	versionPlain := content.ToPlainText(versionHTML)
	rendered := content.ToRenderableHTML(versionHTML)

	// Snapshot is always the old side, live document the new side.
	d := diff.Compare(versionPlain, livePlain)

	stats := Stats{
		Version: Counts{Words: content.WordCount(versionPlain), Chars: content.CharCount(versionPlain)},
		Current: Counts{Words: content.WordCount(livePlain), Chars: content.CharCount(livePlain)},
	}
	stats.WordDelta = stats.Version.Words - stats.Current.Words
	stats.CharDelta = stats.Version.Chars - stats.Current.Chars

	return &Preview{
		VersionID:     v.ID,
		VersionNumber: v.VersionNumber,
		RenderedHTML:  rendered,
		SideBySide: SideBySide{
			VersionHTML: rendered,
			CurrentHTML: content.ToRenderableHTML(liveHTML),
		},
		Diff:          d,
		Stats:         stats,
		RelativeTime:  RelativeTime(v.CreatedAt, now),
		PlainText:     versionPlain,
		NoDifferences: !d.HasChanges,
	}
}

// VisibleSegments filters whitespace-only segments out for rendering. The
// underlying diff keeps them so stats and export stay exact.
func (p *Preview) VisibleSegments() []diff.Segment {
	if p.Diff == nil {
		return nil
	}
	out := make([]diff.Segment, 0, len(p.Diff.Segments))
	for _, seg := range p.Diff.Segments {
		if seg.WhitespaceOnly() {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// ClipboardText returns what copy-to-clipboard should carry for a version:
// always the normalized plain text, never raw HTML.
func ClipboardText(v *version.Version) string {
	source := v.Content
	if source == "" {
		source = v.HTMLPreview
	}
	return content.ToPlainText(source)
}

// RelativeTime formats a human-relative age for version timestamps.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}

	switch {
	case d < justNowThreshold:
		return "just now"
	case d < time.Minute:
		return plural(int(d.Seconds()), "second")
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	default:
		return plural(int(d.Hours()/(24*30)), "month")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
