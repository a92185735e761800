package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Segment is one run of lines in a comparison between a snapshot and the
// live document. Added means present in the live document but not the
// snapshot; Removed means present in the snapshot but gone from the live
// document. Neither flag set means unchanged.
type Segment struct {
	Value   string `json:"value"`
	Added   bool   `json:"added"`
	Removed bool   `json:"removed"`
}

// WhitespaceOnly reports whether the segment holds no visible characters.
// Renderers skip such segments; the underlying computation keeps them.
func (s Segment) WhitespaceOnly() bool {
	return strings.TrimSpace(s.Value) == ""
}

// Stats summarizes a comparison.
type Stats struct {
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
}

// Result is the outcome of comparing snapshot text against live text.
type Result struct {
	Segments   []Segment `json:"segments"`
	Stats      Stats     `json:"stats"`
	HasChanges bool      `json:"has_changes"`
}

// Compare computes a line-level diff. The argument order is a hard contract:
// oldText is the snapshot under inspection, newText is the live document.
// Swapping them flips the meaning of every added/removed flag downstream.
func Compare(oldText, newText string) *Result {
	if oldText == newText {
		return &Result{
			Segments:   []Segment{{Value: oldText}},
			HasChanges: false,
		}
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better readability
	oldLines, newLines, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(oldLines, newLines, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	diffs = dmp.DiffCleanupSemantic(diffs)

	result := &Result{}
	for _, d := range diffs {
		seg := Segment{Value: d.Text}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			seg.Added = true
			result.Stats.LinesAdded += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			seg.Removed = true
			result.Stats.LinesRemoved += countLines(d.Text)
		}
		result.Segments = append(result.Segments, seg)
	}

	result.HasChanges = len(result.Segments) != 1 || result.Segments[0].Added || result.Segments[0].Removed
	return result
}

// Unified renders a comparison as a traditional unified diff string with
// custom labels, for export and logging.
func Unified(oldText, newText, oldLabel, newLabel string) string {
	result := Compare(oldText, newText)

	var sb strings.Builder
	sb.WriteString("--- " + oldLabel + "\n")
	sb.WriteString("+++ " + newLabel + "\n")

	for _, seg := range result.Segments {
		prefix := " "
		if seg.Added {
			prefix = "+"
		} else if seg.Removed {
			prefix = "-"
		}
		for _, line := range splitLines(seg.Value) {
			sb.WriteString(prefix + line + "\n")
		}
	}

	return sb.String()
}

// countLines counts the lines a diff chunk spans.
func countLines(text string) int {
	return len(splitLines(text))
}

// splitLines splits a chunk into lines, dropping the empty trailing element
// produced by a terminal newline.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
