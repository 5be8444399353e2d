// Package messages stores the immutable turns of a session.
package messages

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Message) error
	// ListBySession returns messages oldest first; equal timestamps keep
	// insertion order.
	ListBySession(ctx context.Context, sessionID string) ([]models.Message, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}
