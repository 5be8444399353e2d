// Package sessions caches the server's session list in the client database.
//
// Rows are upserted rather than replaced so that cached messages, which
// cascade on session delete, survive a refresh of the list.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

type Repository interface {
	ReplaceWorkspace(ctx context.Context, workspaceID string, list []models.Session) error
	Upsert(ctx context.Context, s models.Session) error
	List(ctx context.Context, workspaceID string) ([]models.Session, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
