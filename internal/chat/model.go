// Package chat stores persona chat threads and their append-only turns.
package chat

import (
	"errors"
	"time"
)

// Sender values for a Turn.
const (
	SenderUser    = "user"
	SenderPersona = "persona"
)

var (
	// ErrThreadNotFound is returned when a thread id does not exist.
	ErrThreadNotFound = errors.New("chat: thread not found")
	// ErrPersonaMismatch is returned when a thread belongs to another persona.
	ErrPersonaMismatch = errors.New("chat: thread_id와 persona_id가 일치하지 않습니다.")
)

// Thread is one conversation between a user and a persona.
type Thread struct {
	ID          string    `json:"id"`
	PersonaID   int64     `json:"persona_id"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// Turn is a single stored message. Turns are ordered by ID, which is
// assigned monotonically on insert.
type Turn struct {
	ID        int64     `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
