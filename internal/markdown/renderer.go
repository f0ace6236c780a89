// Package markdown renders documentation Markdown to HTML.
//
// A Renderer wraps a goldmark instance extended with titled, line-numbered
// code blocks, admonition containers (:::note ... :::) and tab groups
// (:::tabs ... :::). Container bodies are rendered recursively by the same
// Renderer.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Version salts render cache keys. Bump it whenever the HTML output of the
// Renderer changes for the same input.
const Version = "3"

// Options configures a Renderer.
type Options struct {
	// CodeClassPrefix is prepended to chroma token classes. It must match the
	// prefix used when writing highlight.css.
	CodeClassPrefix string
}

// Renderer converts Markdown bodies to HTML. It is safe for concurrent use.
type Renderer struct {
	md   goldmark.Markdown
	opts Options
}

// New builds a Renderer with the documentation extensions installed.
func New(opts Options) *Renderer {
	r := &Renderer{opts: opts}
	r.md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithBlockParsers(
				util.Prioritized(&containerParser{}, 150),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(
				util.Prioritized(&codeBlockRenderer{prefix: opts.CodeClassPrefix}, 200),
				util.Prioritized(&containerRenderer{owner: r}, 200),
			),
		),
	)
	return r
}

// Render converts a Markdown body (front matter already removed) to HTML.
func (r *Renderer) Render(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
