package composer

import (
	"fmt"
	"strings"

	"github.com/kalambet/folio/internal/gemini"
)

const personaIntro = `You are an AI assistant for %[1]s. You are embedded in their portfolio website.
Your goal is to answer visitor questions about %[1]s using ONLY the provided JSON data.
`

const personaTraits = `
Traits:
- Professional, friendly, and concise.
- Speak in the first person ("I" or "My") as if you are %[1]s's digital twin, OR third person ("%[1]s"), whichever flows better.
- If asked about something not in the data (like an exact street address), politely decline%[2]s.
- Keep answers short (under 3 sentences) unless asked for details.`

// SystemInstruction returns the persona text followed by the profile data.
func (c *Composer) SystemInstruction(profileContext string) string {
	p := c.persona

	var sb strings.Builder
	fmt.Fprintf(&sb, personaIntro, p.Name)
	if len(p.Highlights) > 0 {
		sb.WriteString("\nKey Highlights to Emphasize:\n")
		for _, h := range p.Highlights {
			sb.WriteString("- ")
			sb.WriteString(h)
			sb.WriteByte('\n')
		}
	}
	located := ""
	if p.Location != "" {
		located = fmt.Sprintf(", though you can mention %s is based in %s", p.Name, p.Location)
	}
	fmt.Fprintf(&sb, personaTraits, p.Name, located)
	sb.WriteString("\n\nData: ")
	sb.WriteString(profileContext)
	return sb.String()
}

// ChatRequest builds the request for a visitor message. Only the last
// HistoryWindow prior turns are rendered, oldest first, followed by the new
// user line and an open assistant line.
func (c *Composer) ChatRequest(profileContext string, history []Turn, message string) gemini.Request {
	return gemini.Request{
		SystemInstruction: c.SystemInstruction(profileContext),
		Prompt:            ChatPrompt(history, message),
	}
}

// ChatPrompt renders the windowed transcript. The result depends only on its
// arguments.
func ChatPrompt(history []Turn, message string) string {
	start := 0
	if len(history) > HistoryWindow {
		start = len(history) - HistoryWindow
	}

	var sb strings.Builder
	for _, t := range history[start:] {
		sb.WriteString(string(t.Role))
		sb.WriteString(": ")
		sb.WriteString(t.Text)
		sb.WriteByte('\n')
	}
	sb.WriteString("user: ")
	sb.WriteString(message)
	sb.WriteString("\nassistant:")
	return sb.String()
}
