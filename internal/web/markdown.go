package web

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdownFields are task fields that hold rich text and are rendered as
// HTML on the pages.
var markdownFields = map[string]bool{"Description": true}

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

// getMarkdown returns the shared converter. It runs without the unsafe
// option, so raw HTML in the source is dropped and dangerous link targets
// are blanked.
func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownInstance
}

// renderMarkdown converts rich text to HTML. It returns "" for empty
// input or when conversion fails, in which case the plain value is shown.
func renderMarkdown(source string) template.HTML {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := getMarkdown().Convert([]byte(source), &buf); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}
