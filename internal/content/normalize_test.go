package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPlainTextJoinsBlocksWithDoubleNewline(t *testing.T) {
	got := ToPlainText("<p>Intro</p><p>Body</p>")
	assert.Equal(t, "Intro"+BlockSeparator+"Body", got)
}

func TestToPlainTextStandardBlocks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "headings and paragraphs",
			html: "<h1>Title</h1><p>Body</p>",
			want: "Title\n\nBody",
		},
		{
			name: "list items are independent blocks",
			html: "<ul><li>one</li><li>two</li></ul>",
			want: "one\n\ntwo",
		},
		{
			name: "line break inside a block is a single newline",
			html: "<p>first<br>second</p>",
			want: "first\nsecond",
		},
		{
			name: "blockquote wrapping a paragraph is not doubled",
			html: "<blockquote><p>quoted</p></blockquote>",
			want: "quoted",
		},
		{
			name: "preformatted block",
			html: "<pre>code here</pre><p>after</p>",
			want: "code here\n\nafter",
		},
		{
			name: "blocks are trimmed",
			html: "<p>  padded  </p><p>next</p>",
			want: "padded\n\nnext",
		},
		{
			name: "empty blocks are skipped",
			html: "<p>one</p><p>  </p><p>two</p>",
			want: "one\n\ntwo",
		},
		{
			name: "empty input",
			html: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPlainText(tt.html))
		})
	}
}

func TestToPlainTextDialectEquivalence(t *testing.T) {
	tests := []struct {
		name     string
		dialect  string
		standard string
	}{
		{
			name:     "paragraph tag",
			dialect:  "<paragraph>Intro</paragraph><paragraph>Body</paragraph>",
			standard: "<p>Intro</p><p>Body</p>",
		},
		{
			name:     "hard break tag",
			dialect:  "<paragraph>a<hardbreak></hardbreak>b</paragraph>",
			standard: "<p>a<br>b</p>",
		},
		{
			name:     "heading with level attribute",
			dialect:  `<heading level="3">Section</heading><paragraph>Body</paragraph>`,
			standard: "<h3>Section</h3><p>Body</p>",
		},
		{
			name:     "code block tag",
			dialect:  "<codeblock>x := 1</codeblock>",
			standard: "<pre>x := 1</pre>",
		},
		{
			name:     "bullet list tags",
			dialect:  "<bulletlist><listitem>one</listitem><listitem>two</listitem></bulletlist>",
			standard: "<ul><li>one</li><li>two</li></ul>",
		},
		{
			name:     "task list tags",
			dialect:  `<tasklist><taskitem checked="true">done</taskitem><taskitem>todo</taskitem></tasklist>`,
			standard: "<ul><li>done</li><li>todo</li></ul>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ToPlainText(tt.standard), ToPlainText(tt.dialect))
		})
	}
}

func TestToRenderableHTMLNormalizesDialect(t *testing.T) {
	got := ToRenderableHTML(`<heading level="2">Title</heading><paragraph>Body</paragraph>`)
	assert.Contains(t, got, "<h2>Title</h2>")
	assert.Contains(t, got, "<p>Body</p>")
}

func TestToRenderableHTMLHeadingLevelsPreserved(t *testing.T) {
	// Each level must round-trip to its own tag, not collapse to h1.
	got := ToRenderableHTML(`<heading level="1">a</heading><heading level="4">b</heading><heading level="6">c</heading>`)
	assert.Contains(t, got, "<h1>a</h1>")
	assert.Contains(t, got, "<h4>b</h4>")
	assert.Contains(t, got, "<h6>c</h6>")
}

func TestToRenderableHTMLTaskGlyphs(t *testing.T) {
	got := ToRenderableHTML(`<tasklist><taskitem checked="true">done</taskitem><taskitem>todo</taskitem></tasklist>`)
	assert.Contains(t, got, "✅ done")
	assert.Contains(t, got, "☐ todo")
}

func TestToRenderableHTMLKeepsInlineMarkup(t *testing.T) {
	got := ToRenderableHTML("<p>Hello <b>world</b></p>")
	assert.Contains(t, got, "<b>world</b>")
}

func TestToRenderableHTMLStripsScript(t *testing.T) {
	got := ToRenderableHTML(`<p>safe</p><script>alert(1)</script>`)
	assert.Contains(t, got, "safe")
	assert.NotContains(t, got, "<script>")
}

func TestToPlainTextNeverPanics(t *testing.T) {
	inputs := []string{
		"<p>unclosed",
		"<<<>>>",
		"<heading level=\"nope\">x</heading>",
		strings.Repeat("<div>", 50) + "deep" + strings.Repeat("</div>", 50),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { ToPlainText(in) })
		assert.NotPanics(t, func() { ToRenderableHTML(in) })
	}
}

func TestCounts(t *testing.T) {
	assert.Equal(t, 3, WordCount("one two  three"))
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 5, CharCount("héllo")) // runes, not bytes
}
