package composer

import (
	"errors"
	"fmt"
)

// HistoryWindow is the number of prior turns included in a chat prompt.
const HistoryWindow = 4

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrInvalidTurn is returned when a turn carries an unknown role.
var ErrInvalidTurn = errors.New("invalid conversation turn")

// Turn is one entry of the caller-owned conversation log.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Persona is what the chat persona says about the profile owner beyond the
// raw data: who they are, where they are based and what to emphasize.
type Persona struct {
	Name       string
	Location   string
	Highlights []string
}

// Composer builds inference requests for the profile owner's assistant. It
// holds no per-conversation state; history is always passed in.
type Composer struct {
	persona Persona
}

// New creates a Composer for the given persona.
func New(p Persona) *Composer {
	p.Highlights = append([]string(nil), p.Highlights...)
	return &Composer{persona: p}
}

// ValidateTurns checks every turn has a known role.
func ValidateTurns(history []Turn) error {
	for i, t := range history {
		switch t.Role {
		case RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: turn %d has role %q", ErrInvalidTurn, i, t.Role)
		}
	}
	return nil
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
