package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel          = "gemini-2.5-flash-preview-09-2025"
	defaultAttemptTimeout = 30 * time.Second
	maxRetries            = 3
	maxResponseSize       = 4 << 20 // 4MB
)

// backoffSchedule[i] is the wait before attempt i+2. Fixed, no jitter.
var backoffSchedule = [maxRetries]time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
}

// Sleeper abstracts the backoff wait for testability.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client calls the generateContent endpoint with bounded retry. It holds no
// state between calls and is safe for concurrent use.
type Client struct {
	apiKey         string
	baseURL        string
	model          string
	attemptTimeout time.Duration
	httpClient     *http.Client
	sleeper        Sleeper
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the default model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at a different API root (for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithAttemptTimeout bounds each individual attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSleeper replaces the backoff wait.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleeper = s
		}
	}
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client. An empty apiKey is accepted; calls then resolve
// to the offline outcome without touching the network.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:         apiKey,
		baseURL:        defaultBaseURL,
		model:          defaultModel,
		attemptTimeout: defaultAttemptTimeout,
		httpClient:     &http.Client{},
		sleeper:        timerSleeper{},
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// GenerateText is the display-level contract: it always returns a string.
func (c *Client) GenerateText(ctx context.Context, prompt, systemInstruction string) string {
	return c.Generate(ctx, Request{Prompt: prompt, SystemInstruction: systemInstruction}).Display()
}

// Generate runs up to 1+maxRetries attempts. Non-2xx statuses, transport
// errors and undecodable bodies are retried; a JSON reply without text
// resolves to StatusMalformed immediately. Generate never returns an error; failures are encoded in the
// Outcome.
func (c *Client) Generate(ctx context.Context, req Request) Outcome {
	if strings.TrimSpace(req.Prompt) == "" {
		return Outcome{Status: StatusRejected, Err: ErrEmptyPrompt}
	}
	if c.apiKey == "" {
		c.logger.Warn("gemini: no API key configured, returning offline fallback")
		return Outcome{Status: StatusOffline, Err: ErrMissingAPIKey}
	}

	body, err := json.Marshal(newGenerateRequest(req))
	if err != nil {
		return Outcome{Status: StatusOffline, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleeper.Sleep(ctx, backoffSchedule[attempt-1]); err != nil {
				return Outcome{Status: StatusOffline, Attempts: attempt, Err: err}
			}
		}

		start := time.Now()
		payload, err := c.doGenerate(ctx, body)
		if err == nil {
			c.logger.Debug("gemini attempt succeeded",
				"attempt", attempt+1,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			text := extractText(payload)
			if text == "" {
				return Outcome{Status: StatusMalformed, Attempts: attempt + 1, Err: ErrNoCandidateText}
			}
			return Outcome{Status: StatusOK, Text: text, Attempts: attempt + 1}
		}

		lastErr = err
		c.logger.Debug("gemini attempt failed",
			"attempt", attempt+1,
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		if ctx.Err() != nil {
			return Outcome{Status: StatusOffline, Attempts: attempt + 1, Err: ctx.Err()}
		}
	}

	return Outcome{
		Status:   StatusOffline,
		Attempts: maxRetries + 1,
		Err:      fmt.Errorf("offline after %d attempts: %w", maxRetries+1, lastErr),
	}
}

// doGenerate performs one attempt under its own timeout and returns the
// response body of a 2xx reply. A 2xx body that is not JSON fails the attempt.
func (c *Client) doGenerate(ctx context.Context, body []byte) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Detail: describeStatus(resp.StatusCode, respBody)}
	}
	if !gjson.ValidBytes(respBody) {
		return nil, fmt.Errorf("decoding response: %w", ErrUndecodableBody)
	}
	return respBody, nil
}

// extractText returns the first candidate's first text part, or "" if the
// payload does not have that shape.
func extractText(payload []byte) string {
	r := gjson.GetBytes(payload, candidateTextPath)
	if r.Type != gjson.String {
		return ""
	}
	return r.String()
}
