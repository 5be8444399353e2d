package messages

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Replace swaps the cached messages of a session for list. Callers should
// run it inside a transaction.
func (r *SQLiteRepository) Replace(ctx context.Context, sessionID string, list []models.Message) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear session messages: %w", err)
	}
	for _, m := range list {
		if err := r.Append(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Append stores m unless it is local-only. Re-appending a known id is a no-op.
func (r *SQLiteRepository) Append(ctx context.Context, m models.Message) error {
	if m.Pending || m.IsAnnotation() {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		m.ID, m.SessionID, m.Role, m.Content, dbx.TimeToDB(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// List returns a session's cached messages in conversation order.
func (r *SQLiteRepository) List(ctx context.Context, sessionID string) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, session_id, role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	result := make([]models.Message, 0)
	for rows.Next() {
		var (
			m       models.Message
			created int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = dbx.TimeFromDB(created)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}
