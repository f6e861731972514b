package gemini

// Status tags how a Generate call resolved.
type Status int

const (
	StatusOK Status = iota
	// StatusOffline covers exhausted retries, a missing credential and cancellation.
	StatusOffline
	// StatusMalformed means the service answered 2xx without usable text.
	StatusMalformed
	// StatusRejected means the call was refused before any network attempt.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusOffline:
		return "offline"
	case StatusMalformed:
		return "malformed"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// User-facing fallback texts for the degraded outcomes.
const (
	OfflineFallback   = "Sorry, I'm currently offline. Please try again later."
	MalformedFallback = "I'm having trouble thinking right now. Try again?"
)

// Outcome is the tagged result of Generate. Callers that only need something
// to show use Display.
type Outcome struct {
	Status   Status
	Text     string
	Attempts int
	Err      error
}

// Display flattens the outcome into a string for the UI.
func (o Outcome) Display() string {
	switch o.Status {
	case StatusOK:
		return o.Text
	case StatusMalformed:
		return MalformedFallback
	case StatusOffline:
		return OfflineFallback
	default:
		return ""
	}
}

// Degraded reports whether Display returns a fallback instead of model output.
func (o Outcome) Degraded() bool {
	return o.Status == StatusOffline || o.Status == StatusMalformed
}
