package content

import (
	"bytes"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BlockSeparator joins normalized text blocks. It must match the separator the
// live editor uses for its own plain-text extraction byte for byte, otherwise
// the diff engine reports phantom changes on every block boundary.
const BlockSeparator = "\n\n"

const fallbackText = ""

const fallbackHTML = `<p>Unable to render this version. The stored content could not be parsed.</p>`

// dialectTags maps the editor's non-standard node names (already lowercased by
// the HTML tokenizer) to their standard HTML equivalents. Heading is handled
// separately because its level travels in an attribute.
var dialectTags = map[string]atom.Atom{
	"paragraph":      atom.P,
	"hardbreak":      atom.Br,
	"bulletlist":     atom.Ul,
	"orderedlist":    atom.Ol,
	"listitem":       atom.Li,
	"tasklist":       atom.Ul,
	"taskitem":       atom.Li,
	"codeblock":      atom.Pre,
	"horizontalrule": atom.Hr,
}

var headingAtoms = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

var blockAtoms = map[atom.Atom]bool{
	atom.P:          true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Pre:        true,
	atom.Blockquote: true,
	atom.Div:        true,
}

var previewPolicy = buildPreviewPolicy()

func buildPreviewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("data-checked").OnElements("li")
	p.AllowAttrs("class").OnElements("ul", "li", "pre", "code")
	return p
}

// ToPlainText converts a rich-text HTML document into canonical plain text:
// one trimmed text block per block-level element, blocks joined by
// BlockSeparator, explicit line breaks preserved as single newlines.
func ToPlainText(rawHTML string) string {
	doc, err := parseNormalized(rawHTML)
	if err != nil {
		log.Printf("content: failed to parse HTML for plain text: %v", err)
		return fallbackText
	}

	var blocks []string
	collectBlocks(doc, &blocks)
	return strings.Join(blocks, BlockSeparator)
}

// ToRenderableHTML normalizes dialect tags to standard HTML and returns a
// sanitized fragment suitable for preview rendering. Malformed input degrades
// to a visible error fragment, never a panic or error return.
func ToRenderableHTML(rawHTML string) string {
	doc, err := parseNormalized(rawHTML)
	if err != nil {
		log.Printf("content: failed to parse HTML for preview: %v", err)
		return fallbackHTML
	}

	body := findBody(doc)
	if body == nil {
		return fallbackHTML
	}
	decorateTaskItems(body)

	var sb strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			log.Printf("content: failed to render preview HTML: %v", err)
			return fallbackHTML
		}
	}

	return previewPolicy.Sanitize(sb.String())
}

// WordCount counts whitespace-separated words in plain text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CharCount counts runes in plain text.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

// parseNormalized parses HTML and rewrites dialect nodes to standard elements
// in a single tree transform.
func parseNormalized(rawHTML string) (*html.Node, error) {
	doc, err := html.Parse(bytes.NewReader([]byte(rawHTML)))
	if err != nil {
		return nil, err
	}
	normalizeNode(doc)
	return doc, nil
}

// normalizeNode rewrites one node and recurses into its children.
func normalizeNode(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == 0 {
		name := strings.ToLower(n.Data)
		if name == "heading" {
			level := headingLevel(n)
			n.DataAtom = headingAtoms[level-1]
			n.Data = n.DataAtom.String()
			n.Attr = removeAttr(n.Attr, "level")
		} else if mapped, ok := dialectTags[name]; ok {
			wasTaskItem := name == "taskitem"
			n.DataAtom = mapped
			n.Data = mapped.String()
			if wasTaskItem {
				rewriteTaskItem(n)
			}
			// Self-closing dialect tags parse as open elements that swallow
			// trailing content; void elements must not keep those children.
			if mapped == atom.Br || mapped == atom.Hr {
				hoistChildren(n)
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		normalizeNode(c)
	}
}

// headingLevel reads the level attribute of a dialect heading node, clamped
// to 1..6. Missing or malformed levels fall back to 1.
func headingLevel(n *html.Node) int {
	for _, a := range n.Attr {
		if strings.ToLower(a.Key) != "level" {
			continue
		}
		switch a.Val {
		case "1", "2", "3", "4", "5", "6":
			return int(a.Val[0] - '0')
		}
	}
	return 1
}

// rewriteTaskItem records the checked state of a converted task item in a
// data attribute. The glyph prefix is only added on the renderable-HTML path
// so plain-text output stays identical to the standard-tag dialect.
func rewriteTaskItem(n *html.Node) {
	checked := false
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if (key == "checked" || key == "data-checked") && (a.Val == "" || strings.EqualFold(a.Val, "true") || strings.EqualFold(a.Val, "checked")) {
			checked = true
		}
	}
	n.Attr = removeAttr(n.Attr, "checked")
	n.Attr = append(removeAttr(n.Attr, "data-checked"), html.Attribute{Key: "data-checked", Val: boolString(checked)})
}

// decorateTaskItems prefixes converted task items with their checked-state
// glyph for visual preview.
func decorateTaskItems(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Li {
		for _, a := range n.Attr {
			if a.Key == "data-checked" {
				glyph := "☐ " // ☐
				if a.Val == "true" {
					glyph = "✅ " // ✅
				}
				n.InsertBefore(&html.Node{Type: html.TextNode, Data: glyph}, n.FirstChild)
				break
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		decorateTaskItems(c)
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// hoistChildren moves the children of n to be its following siblings,
// preserving order.
func hoistChildren(n *html.Node) {
	after := n.NextSibling
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		if after != nil {
			n.Parent.InsertBefore(c, after)
		} else {
			n.Parent.AppendChild(c)
		}
	}
}

func removeAttr(attrs []html.Attribute, key string) []html.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		if !strings.EqualFold(a.Key, key) {
			out = append(out, a)
		}
	}
	return out
}

// collectBlocks walks the tree and appends one trimmed text block per
// leaf-level block element. Containers holding nested block elements are
// recursed into so a blockquote wrapping paragraphs yields the paragraphs,
// not a doubled blob.
func collectBlocks(n *html.Node, blocks *[]string) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript:
			return
		}

		if blockAtoms[n.DataAtom] && !hasBlockDescendant(n) {
			text := strings.TrimSpace(collectInlineText(n))
			if text != "" {
				*blocks = append(*blocks, text)
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectBlocks(c, blocks)
	}
}

func hasBlockDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && blockAtoms[c.DataAtom] {
			return true
		}
		if hasBlockDescendant(c) {
			return true
		}
	}
	return false
}

// collectInlineText concatenates the visible text inside a block, converting
// explicit line-break elements to single newlines.
func collectInlineText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Br:
				sb.WriteString("\n")
				return
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}
