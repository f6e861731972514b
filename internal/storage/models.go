package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is the metadata of one assist call. Prompt and reply text are
// never stored.
type Interaction struct {
	ID         string
	CreatedAt  time.Time
	Kind       string // "chat" or "draft"
	Status     string // "ok", "offline", "malformed"
	Attempts   int
	DurationMs int64
}

// ContactMessage is a submission of the portfolio contact form.
type ContactMessage struct {
	ID        string
	CreatedAt time.Time
	Name      string
	Email     string
	Message   string
}

// StatusCount is one row of InteractionStats.
type StatusCount struct {
	Kind          string
	Status        string
	Count         int
	AvgAttempts   float64
	AvgDurationMs float64
}
