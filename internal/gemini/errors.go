package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyPrompt is returned for a prompt that is blank after trimming.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrMissingAPIKey is returned when no credential is configured.
	ErrMissingAPIKey = errors.New("gemini API key is not configured")
	// ErrNoCandidateText is returned for a 2xx response without candidate text.
	ErrNoCandidateText = errors.New("response has no candidate text")
	// ErrUndecodableBody is returned for a 2xx response whose body is not JSON.
	ErrUndecodableBody = errors.New("response body is not valid JSON")
)

// StatusError is returned for a non-2xx response. It is always retried.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini returned HTTP %d: %s", e.Code, e.Detail)
}

// describeStatus extracts a short human-readable cause from an error body.
func describeStatus(code int, body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	switch code {
	case http.StatusBadRequest:
		return "bad request (is the API key valid?)"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "authentication failed, check the API key"
	case http.StatusNotFound:
		return "model or endpoint not found"
	case http.StatusTooManyRequests:
		return "rate limited"
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return "service temporarily unavailable"
	}

	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = http.StatusText(code)
	}
	return s
}
