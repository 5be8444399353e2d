package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// SessionService is the only writer of session and message rows. Every
// operation is scoped to the authenticated owner: sessions belonging to
// someone else behave exactly like missing ones.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession starts an empty session with createdAt == updatedAt.
func (s *SessionService) CreateSession(ctx context.Context, title, workspaceID, ownerID string) (*models.Session, error) {
	title = strings.TrimSpace(title)
	workspaceID = strings.TrimSpace(workspaceID)

	if title == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspaceId is required", common.ErrValidation)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: userId is required", common.ErrValidation)
	}

	now := s.now()
	session := &models.Session{
		ID:          uuid.NewString(),
		Title:       title,
		WorkspaceID: workspaceID,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repomanager.Sessions(s.db).Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	return session, nil
}

// ListSessions returns the owner's sessions in workspaceID, most recently
// updated first.
func (s *SessionService) ListSessions(ctx context.Context, ownerID, workspaceID string) ([]models.Session, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return nil, fmt.Errorf("%w: workspaceId is required", common.ErrValidation)
	}

	list, err := s.repomanager.Sessions(s.db).List(ctx, ownerID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}
	return list, nil
}

// GetSession returns the session with its messages in chronological order.
func (s *SessionService) GetSession(ctx context.Context, ownerID, sessionID string) (*models.Transcript, error) {
	var t *models.Transcript

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		session, err := s.ownedSession(ctx, tx, ownerID, sessionID)
		if err != nil {
			return err
		}
		msgs, err := s.repomanager.Messages(tx).ListBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("error listing messages: %w", err)
		}
		t = &models.Transcript{Session: *session, Messages: msgs}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// AppendMessage stores a message and advances the session's updatedAt and
// lastMessage in the same transaction.
func (s *SessionService) AppendMessage(ctx context.Context, ownerID, sessionID, role, content string) (*models.Message, error) {
	if !common.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, role)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", common.ErrValidation)
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.ownedSession(ctx, tx, ownerID, sessionID); err != nil {
			return err
		}
		if err := s.repomanager.Messages(tx).Create(ctx, msg); err != nil {
			return fmt.Errorf("error creating message: %w", err)
		}
		if err := s.repomanager.Sessions(tx).Touch(ctx, sessionID, msg.CreatedAt, content); err != nil {
			return fmt.Errorf("error updating session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// RenameSession replaces the title and bumps updatedAt.
func (s *SessionService) RenameSession(ctx context.Context, ownerID, sessionID, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", common.ErrValidation)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.ownedSession(ctx, tx, ownerID, sessionID); err != nil {
			return err
		}
		if err := s.repomanager.Sessions(tx).Rename(ctx, sessionID, title, s.now()); err != nil {
			return fmt.Errorf("error renaming session: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return title, nil
}

// DeleteSession removes the session and, by cascade, its messages.
// Deleting a missing session is not an error.
func (s *SessionService) DeleteSession(ctx context.Context, ownerID, sessionID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.ownedSession(ctx, tx, ownerID, sessionID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		if err := s.repomanager.Sessions(tx).Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("error deleting session: %w", err)
		}
		return nil
	})
}

func (s *SessionService) ownedSession(ctx context.Context, db dbx.DBTX, ownerID, sessionID string) (*models.Session, error) {
	session, err := s.repomanager.Sessions(db).Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading session: %w", err)
	}
	if session.UserID != ownerID {
		return nil, common.ErrorNotFound
	}
	return session, nil
}
