package domain

import "time"

// ConversationTurn is one question/answer exchange inside a session.
type ConversationTurn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSession is a persisted dialogue thread keyed by an opaque id.
// Turns are appended per exchange and truncated to a bounded window before
// being embedded into prompts.
type ConversationSession struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Turns     []ConversationTurn `json:"turns,omitempty"`
}
