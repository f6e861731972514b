package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/folio/internal/composer"
	"github.com/kalambet/folio/internal/gemini"
)

// Kind labels which assist feature produced an interaction.
type Kind string

const (
	KindChat  Kind = "chat"
	KindDraft Kind = "draft"
)

// Generator produces text for a request. *gemini.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req gemini.Request) gemini.Outcome
}

// Interaction is the metadata of one completed call. It never carries the
// prompt or the reply text.
type Interaction struct {
	Kind     Kind
	Status   gemini.Status
	Attempts int
	Duration time.Duration
	At       time.Time
}

// Recorder receives an Interaction after every call.
type Recorder interface {
	RecordInteraction(ctx context.Context, in Interaction) error
}

// ContextSource supplies the serialized profile used as grounding data and
// the persona built around it. *profile.Snapshot satisfies it.
type ContextSource interface {
	Context() string
	Persona() composer.Persona
}

// Reply is the result of Ask or Draft.
type Reply struct {
	gemini.Outcome
	// Turn is the assistant turn the caller appends to its conversation log.
	// It is zero for rejected calls.
	Turn composer.Turn
}

// Assistant answers visitor questions about the profile owner and drafts
// contact messages.
type Assistant struct {
	gen      Generator
	profile  ContextSource
	composer *composer.Composer
	recorder Recorder
	now      func() time.Time
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithRecorder reports each interaction to r.
func WithRecorder(r Recorder) Option {
	return func(a *Assistant) { a.recorder = r }
}

// New creates an Assistant for the given profile.
func New(gen Generator, profile ContextSource, opts ...Option) *Assistant {
	a := &Assistant{
		gen:      gen,
		profile:  profile,
		composer: composer.New(profile.Persona()),
		now:      time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Ask answers message in the context of the caller's conversation log.
// Only the trailing window of history is sent.
func (a *Assistant) Ask(ctx context.Context, history []composer.Turn, message string) (Reply, error) {
	if err := composer.ValidateTurns(history); err != nil {
		return Reply{}, err
	}
	if strings.TrimSpace(message) == "" {
		return rejected(), nil
	}
	req := a.composer.ChatRequest(a.profile.Context(), history, message)
	return a.run(ctx, KindChat, req), nil
}

// Draft turns a visitor's intent into a ready-to-send contact message.
func (a *Assistant) Draft(ctx context.Context, intent string) Reply {
	if strings.TrimSpace(intent) == "" {
		return rejected()
	}
	return a.run(ctx, KindDraft, a.composer.DraftRequest(intent))
}

// rejected is returned for blank input; the templates would otherwise hide
// it from the client's own empty-prompt check.
func rejected() Reply {
	return Reply{Outcome: gemini.Outcome{Status: gemini.StatusRejected, Err: gemini.ErrEmptyPrompt}}
}

func (a *Assistant) run(ctx context.Context, kind Kind, req gemini.Request) Reply {
	start := a.now()
	out := a.gen.Generate(ctx, req)
	elapsed := a.now().Sub(start)

	slog.Debug("assistant call complete",
		"kind", kind,
		"status", out.Status,
		"attempts", out.Attempts,
		"prompt_tokens", composer.EstimateTokens(req.SystemInstruction+req.Prompt),
		"duration_ms", elapsed.Milliseconds(),
	)
	if out.Degraded() {
		slog.Warn("assistant degraded", "kind", kind, "status", out.Status, "error", out.Err)
	}

	if a.recorder != nil && out.Status != gemini.StatusRejected {
		in := Interaction{Kind: kind, Status: out.Status, Attempts: out.Attempts, Duration: elapsed, At: start}
		if err := a.recorder.RecordInteraction(context.WithoutCancel(ctx), in); err != nil {
			slog.Warn("assistant: failed to record interaction", "error", err)
		}
	}

	reply := Reply{Outcome: out}
	if out.Status != gemini.StatusRejected {
		reply.Turn = composer.Turn{Role: composer.RoleAssistant, Text: out.Display()}
	}
	return reply
}
