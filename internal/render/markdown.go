// Package render turns post bodies into HTML whose heading anchors match the
// outline stored on the record.
package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"folio/internal/derive"
	"folio/internal/domain/content"
)

type Options struct {
	// Unsafe passes raw HTML in bodies through. Only for trusted authors.
	Unsafe bool
}

type MarkdownRenderer struct {
	md goldmark.Markdown
}

func NewMarkdownRenderer(opt Options) *MarkdownRenderer {
	var rendererOpts []goldmark.Option
	if opt.Unsafe {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	md := goldmark.New(append([]goldmark.Option{
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
		),
	}, rendererOpts...)...)
	return &MarkdownRenderer{md: md}
}

type MarkdownResult struct {
	HTML     []byte
	Headings []content.Heading
}

// Render parses src once. Level 2 and 3 headings get the same ids the outline
// assigns, so table-of-contents links resolve.
func (r *MarkdownRenderer) Render(src []byte) (MarkdownResult, error) {
	doc := r.md.Parser().Parse(text.NewReader(src), parser.WithContext(parser.NewContext()))

	heads := derive.WalkOutline(doc, src, func(h *ast.Heading, entry content.Heading) {
		h.SetAttributeString("id", []byte(entry.ID))
	})

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return MarkdownResult{}, err
	}
	return MarkdownResult{
		HTML:     buf.Bytes(),
		Headings: heads,
	}, nil
}
