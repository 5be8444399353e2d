// Package messages caches confirmed session messages in the client database.
// Pending messages and error annotations are never written here.
package messages

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

type Repository interface {
	Replace(ctx context.Context, sessionID string, list []models.Message) error
	Append(ctx context.Context, m models.Message) error
	List(ctx context.Context, sessionID string) ([]models.Message, error)
	Clear(ctx context.Context) error
}
