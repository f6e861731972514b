package composer

import (
	"fmt"

	"github.com/kalambet/folio/internal/gemini"
)

// DraftSystemInstruction is the fixed system text for the message drafter.
const DraftSystemInstruction = "You are a helpful writing assistant for a portfolio contact form."

// DraftWordLimit bounds the length of a drafted contact message.
const DraftWordLimit = 100

const draftTemplate = `Draft a polite, professional, and concise message from a visitor to %s.
The visitor's intent is: "%s".
The message should be ready to send (no placeholders). Keep it under %d words.`

// DraftRequest builds the request that turns a visitor's intent into a
// ready-to-send contact message. The intent is embedded verbatim.
func (c *Composer) DraftRequest(intent string) gemini.Request {
	return gemini.Request{
		SystemInstruction: DraftSystemInstruction,
		Prompt:            fmt.Sprintf(draftTemplate, c.persona.Name, intent, DraftWordLimit),
	}
}
