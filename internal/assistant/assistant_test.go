package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/folio/internal/composer"
	"github.com/kalambet/folio/internal/gemini"
)

type fakeGenerator struct {
	mu       sync.Mutex
	outcome  gemini.Outcome
	requests []gemini.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req gemini.Request) gemini.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.outcome
}

func (f *fakeGenerator) calls() []gemini.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gemini.Request(nil), f.requests...)
}

type fakeProfile struct{}

func (fakeProfile) Context() string { return `{"personalInfo":{"name":"Ada"}}` }
func (fakeProfile) Persona() composer.Persona {
	return composer.Persona{Name: "Ada", Location: "London", Highlights: []string{"First programmer."}}
}

type memRecorder struct {
	mu  sync.Mutex
	got []Interaction
	err error
}

func (r *memRecorder) RecordInteraction(_ context.Context, in Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, in)
	return r.err
}

func TestAsk_Success(t *testing.T) {
	gen := &fakeGenerator{outcome: gemini.Outcome{Status: gemini.StatusOK, Text: "Ada writes programs.", Attempts: 1}}
	a := New(gen, fakeProfile{})

	history := []composer.Turn{
		{Role: composer.RoleAssistant, Text: "Hi! Ask me anything."},
	}
	reply, err := a.Ask(context.Background(), history, "What does Ada do?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Status != gemini.StatusOK || reply.Display() != "Ada writes programs." {
		t.Errorf("reply = %+v", reply)
	}
	if reply.Turn.Role != composer.RoleAssistant || reply.Turn.Text != "Ada writes programs." {
		t.Errorf("turn = %+v", reply.Turn)
	}

	calls := gen.calls()
	if len(calls) != 1 {
		t.Fatalf("generator called %d times, want 1", len(calls))
	}
	want := "assistant: Hi! Ask me anything.\nuser: What does Ada do?\nassistant:"
	if calls[0].Prompt != want {
		t.Errorf("prompt = %q, want %q", calls[0].Prompt, want)
	}
	if !strings.HasSuffix(calls[0].SystemInstruction, "Data: "+fakeProfile{}.Context()) {
		t.Errorf("system instruction missing profile data: %q", calls[0].SystemInstruction)
	}
	if !strings.Contains(calls[0].SystemInstruction, "- First programmer.") ||
		!strings.Contains(calls[0].SystemInstruction, "Ada is based in London") {
		t.Errorf("system instruction missing persona details: %q", calls[0].SystemInstruction)
	}
}

func TestAsk_DegradedStillReturnsTurn(t *testing.T) {
	gen := &fakeGenerator{outcome: gemini.Outcome{Status: gemini.StatusOffline, Attempts: 4, Err: errors.New("503")}}
	a := New(gen, fakeProfile{})

	reply, err := a.Ask(context.Background(), nil, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Turn.Text != gemini.OfflineFallback {
		t.Errorf("turn text = %q, want offline fallback", reply.Turn.Text)
	}
}

func TestAsk_InvalidTurn(t *testing.T) {
	gen := &fakeGenerator{}
	a := New(gen, fakeProfile{})

	_, err := a.Ask(context.Background(), []composer.Turn{{Role: "system", Text: "x"}}, "hi")
	if !errors.Is(err, composer.ErrInvalidTurn) {
		t.Fatalf("err = %v, want ErrInvalidTurn", err)
	}
	if len(gen.calls()) != 0 {
		t.Error("generator called for invalid history")
	}
}

func TestAsk_BlankMessageRejected(t *testing.T) {
	gen := &fakeGenerator{}
	rec := &memRecorder{}
	a := New(gen, fakeProfile{}, WithRecorder(rec))

	reply, err := a.Ask(context.Background(), nil, "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Status != gemini.StatusRejected || !errors.Is(reply.Err, gemini.ErrEmptyPrompt) {
		t.Errorf("reply = %+v, want rejected", reply)
	}
	if reply.Turn != (composer.Turn{}) {
		t.Errorf("rejected reply carries a turn: %+v", reply.Turn)
	}
	if len(gen.calls()) != 0 || len(rec.got) != 0 {
		t.Error("blank message reached the generator or recorder")
	}
}

func TestDraft(t *testing.T) {
	gen := &fakeGenerator{outcome: gemini.Outcome{Status: gemini.StatusOK, Text: "Dear Ada, ...", Attempts: 2}}
	a := New(gen, fakeProfile{})

	reply := a.Draft(context.Background(), "collaborate on a compiler")
	if reply.Display() != "Dear Ada, ..." {
		t.Errorf("display = %q", reply.Display())
	}

	calls := gen.calls()
	if len(calls) != 1 {
		t.Fatalf("generator called %d times, want 1", len(calls))
	}
	if calls[0].SystemInstruction != composer.DraftSystemInstruction {
		t.Errorf("system = %q", calls[0].SystemInstruction)
	}
	if !strings.Contains(calls[0].Prompt, `"collaborate on a compiler"`) {
		t.Errorf("prompt missing intent: %q", calls[0].Prompt)
	}
}

func TestDraft_BlankIntent(t *testing.T) {
	gen := &fakeGenerator{}
	a := New(gen, fakeProfile{})

	reply := a.Draft(context.Background(), "")
	if reply.Status != gemini.StatusRejected || reply.Display() != "" {
		t.Errorf("reply = %+v", reply)
	}
	if len(gen.calls()) != 0 {
		t.Error("generator called for blank intent")
	}
}

func TestRecorder(t *testing.T) {
	gen := &fakeGenerator{outcome: gemini.Outcome{Status: gemini.StatusMalformed, Attempts: 1}}
	rec := &memRecorder{err: errors.New("disk full")}
	a := New(gen, fakeProfile{}, WithRecorder(rec))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	calls := 0
	a.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 250 * time.Millisecond)
	}

	reply := a.Draft(context.Background(), "say hi")
	if reply.Display() != gemini.MalformedFallback {
		t.Errorf("display = %q", reply.Display())
	}

	if len(rec.got) != 1 {
		t.Fatalf("recorded %d interactions, want 1", len(rec.got))
	}
	got := rec.got[0]
	if got.Kind != KindDraft || got.Status != gemini.StatusMalformed || got.Attempts != 1 {
		t.Errorf("interaction = %+v", got)
	}
	if got.Duration != 250*time.Millisecond || !got.At.Equal(base) {
		t.Errorf("timing = %v at %v", got.Duration, got.At)
	}
}
