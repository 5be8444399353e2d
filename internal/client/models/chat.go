// Package models defines the client-side view of sessions and messages.
package models

import "time"

// Session mirrors the server's session resource.
type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	WorkspaceID string    `json:"workspaceId"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastMessage *string   `json:"lastMessage,omitempty"`
}

// Message is one turn as shown to the user. Pending marks an optimistic
// message not yet confirmed by the server; Error marks a local annotation
// that is never persisted.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Pending   bool      `json:"-"`
	Error     string    `json:"-"`
}

// IsAnnotation reports whether m is a local error note.
func (m Message) IsAnnotation() bool {
	return m.Error != ""
}

// Transcript is a session with its ordered messages.
type Transcript struct {
	Session  Session   `json:"session"`
	Messages []Message `json:"messages"`
}

// ExportLink points at an uploaded transcript.
type ExportLink struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// View is an immutable snapshot of the chat state.
type View struct {
	WorkspaceID string
	Sessions    []Session
	ActiveID    string
	Messages    []Message
	Offline     bool
}

// Active returns the active session, if it is in the list.
func (v View) Active() (Session, bool) {
	for _, s := range v.Sessions {
		if s.ID == v.ActiveID {
			return s, true
		}
	}
	return Session{}, false
}
