package sessions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ReplaceWorkspace makes the cached workspace match list: missing sessions
// are removed (with their messages) and the rest are upserted. Callers
// should run it inside a transaction.
func (r *SQLiteRepository) ReplaceWorkspace(ctx context.Context, workspaceID string, list []models.Session) error {
	keep := make(map[string]struct{}, len(list))
	for _, s := range list {
		keep[s.ID] = struct{}{}
	}

	cached, err := r.ids(ctx, workspaceID)
	if err != nil {
		return err
	}
	for _, id := range cached {
		if _, ok := keep[id]; ok {
			continue
		}
		if err := r.Delete(ctx, id); err != nil {
			return err
		}
	}

	for _, s := range list {
		if err := r.Upsert(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) ids(ctx context.Context, workspaceID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM sessions WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to select cached sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert inserts or updates s by id.
func (r *SQLiteRepository) Upsert(ctx context.Context, s models.Session) error {
	query := `INSERT INTO sessions (id, title, workspace_id, user_id, created_at, updated_at, last_message)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title,
				workspace_id = excluded.workspace_id,
				user_id = excluded.user_id,
				updated_at = MAX(sessions.updated_at, excluded.updated_at),
				last_message = COALESCE(excluded.last_message, sessions.last_message)`

	var last sql.NullString
	if s.LastMessage != nil {
		last = sql.NullString{String: *s.LastMessage, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query, s.ID, s.Title, s.WorkspaceID, s.UserID,
		dbx.TimeToDB(s.CreatedAt), dbx.TimeToDB(s.UpdatedAt), last)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// List returns the workspace's cached sessions, most recently updated first.
func (r *SQLiteRepository) List(ctx context.Context, workspaceID string) ([]models.Session, error) {
	query := `SELECT id, title, workspace_id, user_id, created_at, updated_at, last_message
			FROM sessions WHERE workspace_id = ?
			ORDER BY updated_at DESC, rowid DESC`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions: %w", err)
	}
	defer rows.Close()

	result := make([]models.Session, 0)
	for rows.Next() {
		var (
			s                models.Session
			created, updated int64
			last             sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.WorkspaceID, &s.UserID, &created, &updated, &last); err != nil {
			return nil, err
		}
		s.CreatedAt = dbx.TimeFromDB(created)
		s.UpdatedAt = dbx.TimeFromDB(updated)
		if last.Valid {
			v := last.String
			s.LastMessage = &v
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a session and, by cascade, its cached messages.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}
