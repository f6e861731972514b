package gemini

// Request is a single inference call: a system instruction and a prompt.
// It is built per call and not retained.
type Request struct {
	SystemInstruction string
	Prompt            string
}

// generateRequest is the generateContent wire payload.
type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction content   `json:"systemInstruction"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

func newGenerateRequest(r Request) generateRequest {
	return generateRequest{
		Contents:          []content{{Parts: []part{{Text: r.Prompt}}}},
		SystemInstruction: content{Parts: []part{{Text: r.SystemInstruction}}},
	}
}

// candidateTextPath locates the reply text in a generateContent response.
const candidateTextPath = "candidates.0.content.parts.0.text"
