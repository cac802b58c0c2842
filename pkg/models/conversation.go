package models

import "time"

// ConversationMessage is one turn of a tutor conversation
type ConversationMessage struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// ConversationSession stores the running history of a tutor chat
type ConversationSession struct {
	ID        string    `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Scenario  string    `json:"scenario" db:"scenario"`
	Messages  string    `json:"-" db:"messages"` // JSON encoded []ConversationMessage
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
