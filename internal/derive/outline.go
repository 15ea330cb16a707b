package derive

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"folio/internal/domain/content"
)

var outlineParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// Outline lists the level 2 and 3 headings of a Markdown body in document order.
func Outline(body []byte) []content.Heading {
	doc := outlineParser.Parse(text.NewReader(body))
	return WalkOutline(doc, body, nil)
}

// WalkOutline collects outline headings from a parsed document. visit, when
// non-nil, is called with each heading node and its assigned entry so renderers
// can stamp matching anchors.
func WalkOutline(doc ast.Node, src []byte, visit func(*ast.Heading, content.Heading)) []content.Heading {
	slugger := NewSlugger()
	heads := make([]content.Heading, 0)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Level < 2 || h.Level > 3 {
			return ast.WalkSkipChildren, nil
		}
		var buf bytes.Buffer
		writeText(&buf, h, src)
		title := strings.Join(strings.Fields(buf.String()), " ")
		if title == "" {
			return ast.WalkSkipChildren, nil
		}
		entry := content.Heading{
			ID:    slugger.Slug(title),
			Title: title,
			Level: h.Level,
		}
		heads = append(heads, entry)
		if visit != nil {
			visit(h, entry)
		}
		return ast.WalkSkipChildren, nil
	})
	return heads
}

func writeText(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(v.Value)
		case *ast.AutoLink:
			buf.Write(v.Label(src))
		case *ast.RawHTML:
		default:
			writeText(buf, c, src)
		}
	}
}
