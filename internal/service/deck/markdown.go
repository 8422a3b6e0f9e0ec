package deck

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md renders card faces. Raw HTML in the source is escaped, not passed
// through, so the output is safe to embed.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// renderMarkdown converts a card face to HTML. On render failure the raw
// source is returned so a bad card never breaks the deck detail response.
func renderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return source
	}
	return buf.String()
}
