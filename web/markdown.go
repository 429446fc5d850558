// ABOUTME: Markdown to HTML conversion for agent text shown in the web mirror.
package web

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// markdownToHTML converts agent text to HTML. goldmark omits raw HTML unless
// configured as unsafe, so embedded tags from the backend are dropped.
func markdownToHTML(input string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(input), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(input))
	}
	return template.HTML(buf.String())
}
