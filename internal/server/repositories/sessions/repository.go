// Package sessions stores chat sessions. Deleting a session removes its
// messages through the foreign key cascade.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	// Get returns common.ErrorNotFound for an unknown id.
	Get(ctx context.Context, id string) (*models.Session, error)
	// List returns the owner's sessions in a workspace, most recently
	// updated first.
	List(ctx context.Context, userID, workspaceID string) ([]models.Session, error)
	// Touch records activity at the given time. updated_at never decreases.
	Touch(ctx context.Context, id string, at time.Time, lastMessage string) error
	// Rename changes the title and records activity at the given time.
	Rename(ctx context.Context, id, title string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
