package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const okBody = `{"candidates":[{"content":{"parts":[{"text":"Edwin has 15 years of experience."}],"role":"model"}}]}`

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recordingSleeper) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sl := &recordingSleeper{}
	c := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithModel("test-model"),
		WithSleeper(sl),
		WithAttemptTimeout(2*time.Second),
	)
	return c, sl
}

func TestGenerate_Success(t *testing.T) {
	var attempts atomic.Int32
	c, sl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, okBody)
	})

	out := c.Generate(context.Background(), Request{Prompt: "user: hi\nassistant:", SystemInstruction: "be nice"})
	if out.Status != StatusOK {
		t.Fatalf("status = %v, want ok (err %v)", out.Status, out.Err)
	}
	if out.Text != "Edwin has 15 years of experience." {
		t.Errorf("text = %q", out.Text)
	}
	if out.Attempts != 1 || attempts.Load() != 1 {
		t.Errorf("attempts = %d/%d, want 1", out.Attempts, attempts.Load())
	}
	if len(sl.Delays()) != 0 {
		t.Errorf("unexpected backoff before first attempt: %v", sl.Delays())
	}
}

func TestGenerate_RequestShape(t *testing.T) {
	var gotPath, gotKey string
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, okBody)
	})

	c.Generate(context.Background(), Request{Prompt: "the prompt", SystemInstruction: "the system"})

	if gotPath != "/models/test-model:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("x-goog-api-key = %q, want test-key", gotKey)
	}

	b, _ := json.Marshal(got)
	want := `{"contents":[{"parts":[{"text":"the prompt"}]}],"systemInstruction":{"parts":[{"text":"the system"}]}}`
	if string(b) != want {
		t.Errorf("payload = %s, want %s", b, want)
	}
}

func TestGenerate_AllAttemptsFail(t *testing.T) {
	var attempts atomic.Int32
	c, sl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	out := c.Generate(context.Background(), Request{Prompt: "hello"})
	if out.Status != StatusOffline {
		t.Fatalf("status = %v, want offline", out.Status)
	}
	if out.Display() != OfflineFallback {
		t.Errorf("display = %q, want %q", out.Display(), OfflineFallback)
	}
	if got := attempts.Load(); got != 4 {
		t.Errorf("attempts = %d, want 4", got)
	}
	if out.Attempts != 4 {
		t.Errorf("outcome attempts = %d, want 4", out.Attempts)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	got := sl.Delays()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	var se *StatusError
	if !errors.As(out.Err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Errorf("err = %v, want StatusError 503", out.Err)
	}
}

func TestGenerate_MalformedNotRetried(t *testing.T) {
	bodies := []string{
		`{"candidates":[]}`,
		`{"promptFeedback":{"blockReason":"SAFETY"}}`,
		`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
		`{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			var attempts atomic.Int32
			c, sl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				fmt.Fprint(w, body)
			})

			out := c.Generate(context.Background(), Request{Prompt: "hello"})
			if out.Status != StatusMalformed {
				t.Fatalf("status = %v, want malformed", out.Status)
			}
			if out.Display() != MalformedFallback {
				t.Errorf("display = %q", out.Display())
			}
			if attempts.Load() != 1 || out.Attempts != 1 {
				t.Errorf("attempts = %d, want 1", attempts.Load())
			}
			if len(sl.Delays()) != 0 {
				t.Errorf("unexpected backoff: %v", sl.Delays())
			}
		})
	}
}

func TestGenerate_UndecodableBodyRetried(t *testing.T) {
	var attempts atomic.Int32
	c, sl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		fmt.Fprint(w, "<html>gateway error page</html>")
	})

	out := c.Generate(context.Background(), Request{Prompt: "hello"})
	if out.Status != StatusOffline {
		t.Fatalf("status = %v, want offline", out.Status)
	}
	if out.Display() != OfflineFallback {
		t.Errorf("display = %q, want %q", out.Display(), OfflineFallback)
	}
	if attempts.Load() != 4 || out.Attempts != 4 {
		t.Errorf("attempts = %d (outcome %d), want 4", attempts.Load(), out.Attempts)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	got := sl.Delays()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if !errors.Is(out.Err, ErrUndecodableBody) {
		t.Errorf("err = %v, want ErrUndecodableBody", out.Err)
	}
}

func TestGenerate_UndecodableThenValid(t *testing.T) {
	var attempts atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			fmt.Fprint(w, "not json")
			return
		}
		fmt.Fprint(w, okBody)
	})

	out := c.Generate(context.Background(), Request{Prompt: "hello"})
	if out.Status != StatusOK || out.Attempts != 2 {
		t.Errorf("outcome = %+v, want ok after 2 attempts", out)
	}
}

func TestGenerate_SecondAttemptSucceeds(t *testing.T) {
	var attempts atomic.Int32
	c, sl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, okBody)
	})

	out := c.Generate(context.Background(), Request{Prompt: "hello"})
	if out.Status != StatusOK {
		t.Fatalf("status = %v, want ok", out.Status)
	}
	if attempts.Load() != 2 || out.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
	if d := sl.Delays(); len(d) != 1 || d[0] != time.Second {
		t.Errorf("delays = %v, want [1s]", d)
	}
}

func TestGenerate_TransportErrorRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	sl := &recordingSleeper{}
	c := NewClient("test-key", WithBaseURL(url), WithSleeper(sl))

	out := c.Generate(context.Background(), Request{Prompt: "hello"})
	if out.Status != StatusOffline {
		t.Fatalf("status = %v, want offline", out.Status)
	}
	if out.Attempts != 4 {
		t.Errorf("attempts = %d, want 4", out.Attempts)
	}
	if len(sl.Delays()) != 3 {
		t.Errorf("delays = %v, want 3", sl.Delays())
	}
}

func TestGenerate_EmptyPromptRejected(t *testing.T) {
	var attempts atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	})

	for _, p := range []string{"", "   ", "\n\t"} {
		out := c.Generate(context.Background(), Request{Prompt: p})
		if out.Status != StatusRejected || !errors.Is(out.Err, ErrEmptyPrompt) {
			t.Errorf("prompt %q: outcome = %+v, want rejected", p, out)
		}
		if out.Attempts != 0 {
			t.Errorf("prompt %q: attempts = %d, want 0", p, out.Attempts)
		}
	}
	if attempts.Load() != 0 {
		t.Errorf("network called %d times for empty prompts", attempts.Load())
	}
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	out := c.Generate(context.Background(), Request{Prompt: "hello"})
	if out.Status != StatusOffline || !errors.Is(out.Err, ErrMissingAPIKey) {
		t.Fatalf("outcome = %+v, want offline/missing key", out)
	}
	if out.Display() != OfflineFallback {
		t.Errorf("display = %q", out.Display())
	}
	if attempts.Load() != 0 {
		t.Errorf("network called %d times", attempts.Load())
	}
}

func TestGenerate_CancelledDuringBackoff(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient("test-key", WithBaseURL(srv.URL))

	go func() {
		for attempts.Load() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
	}()

	done := make(chan Outcome, 1)
	go func() { done <- c.Generate(ctx, Request{Prompt: "hello"}) }()

	select {
	case out := <-done:
		if out.Status != StatusOffline || !errors.Is(out.Err, context.Canceled) {
			t.Errorf("outcome = %+v, want offline/canceled", out)
		}
		if attempts.Load() != 1 {
			t.Errorf("attempts = %d, want 1", attempts.Load())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Generate did not return promptly after cancellation")
	}
}

func TestGenerate_AttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	var attempts atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c.attemptTimeout = 20 * time.Millisecond

	out := c.Generate(context.Background(), Request{Prompt: "hello"})
	if out.Status != StatusOffline {
		t.Fatalf("status = %v, want offline", out.Status)
	}
	if attempts.Load() != 4 {
		t.Errorf("attempts = %d, want 4", attempts.Load())
	}
}

func TestGenerateText_AlwaysString(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	})

	got := c.GenerateText(context.Background(), "hello", "")
	if got != OfflineFallback {
		t.Errorf("GenerateText = %q, want %q", got, OfflineFallback)
	}
}

func TestDescribeStatus(t *testing.T) {
	if got := describeStatus(403, []byte(`{"error":{"message":"API key not valid"}}`)); got != "API key not valid" {
		t.Errorf("describeStatus = %q", got)
	}
	if got := describeStatus(429, nil); !strings.Contains(got, "rate limited") {
		t.Errorf("describeStatus(429) = %q", got)
	}
	if got := describeStatus(418, nil); got != http.StatusText(418) {
		t.Errorf("describeStatus(418) = %q", got)
	}
}
