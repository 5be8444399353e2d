package models

import "time"

// Session is a titled conversation thread owned by one user inside a
// workspace. UpdatedAt never moves backwards.
type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	WorkspaceID string    `json:"workspaceId"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastMessage *string   `json:"lastMessage,omitempty"`
}

// Message is one immutable turn of a session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Transcript is a session together with its ordered messages.
type Transcript struct {
	Session  Session   `json:"session"`
	Messages []Message `json:"messages"`
}
