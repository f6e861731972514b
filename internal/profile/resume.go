package profile

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// maxResumeChars caps the résumé text attached to the context (~2000 tokens).
const maxResumeChars = 8000

// ExtractResumeText reads the plain text of a PDF résumé, collapsing
// whitespace and capping the length at a word boundary.
func ExtractResumeText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening resume %s: %w", path, err)
	}
	defer f.Close()

	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting resume text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rd); err != nil {
		return "", fmt.Errorf("reading resume text: %w", err)
	}
	return normalizeResume(buf.String()), nil
}

func normalizeResume(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= maxResumeChars {
		return text
	}
	// Don't split a multi-byte UTF-8 character.
	end := maxResumeChars
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	if idx := strings.LastIndex(text[:end], " "); idx > 0 {
		return text[:idx]
	}
	return text[:end]
}
