package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

// Tokens is the credential pair issued by login and refresh.
type Tokens struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	UserID       string    `json:"userId"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// User is the account behind an access token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Register(ctx context.Context, email string, password []byte) (string, error)
	Login(ctx context.Context, email string, password []byte) (*Tokens, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*User, error)
	SetTokens(t Tokens)
	ClearTokens()
	OnTokensRefreshed(fn func(Tokens))

	ListSessions(ctx context.Context, workspaceID string) ([]models.Session, error)
	GetSession(ctx context.Context, sessionID string) (*models.Transcript, error)
	CreateSession(ctx context.Context, title, workspaceID, userID string) (*models.Session, error)
	AppendMessage(ctx context.Context, sessionID, role, content string) (*models.Message, error)
	RenameSession(ctx context.Context, sessionID, title string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ExportSession(ctx context.Context, sessionID string) (*models.ExportLink, error)
}
