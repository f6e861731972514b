package render

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.Linkify),
	)
	policy = bluemonday.UGCPolicy()
)

// HTML converts a markdown reply into sanitized HTML. If conversion fails the
// text is escaped and returned as a single paragraph.
func HTML(text string) string {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		buf.Reset()
		buf.WriteString("<p>")
		buf.WriteString(policy.Sanitize(text))
		buf.WriteString("</p>")
	}
	return string(policy.SanitizeBytes(buf.Bytes()))
}
