package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `id, title, workspace_id, user_id, created_at, updated_at, last_message`

func (r *SQLiteRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, title, workspace_id, user_id, created_at, updated_at, last_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.Title, s.WorkspaceID, s.UserID,
		dbx.TimeToDB(s.CreatedAt), dbx.TimeToDB(s.UpdatedAt), s.LastMessage)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + selectColumns + ` FROM sessions WHERE id = ?`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID, workspaceID string) ([]models.Session, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM sessions
		WHERE user_id = ? AND workspace_id = ?
		ORDER BY updated_at DESC, rowid DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Touch(ctx context.Context, id string, at time.Time, lastMessage string) error {
	query := `
		UPDATE sessions
		SET updated_at = MAX(updated_at, ?), last_message = ?
		WHERE id = ?
	`
	return r.updateOne(ctx, query, dbx.TimeToDB(at), lastMessage, id)
}

func (r *SQLiteRepository) Rename(ctx context.Context, id, title string, at time.Time) error {
	query := `
		UPDATE sessions
		SET title = ?, updated_at = MAX(updated_at, ?)
		WHERE id = ?
	`
	return r.updateOne(ctx, query, title, dbx.TimeToDB(at), id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	s := &models.Session{}
	var created, updated int64
	var last sql.NullString

	if err := row.Scan(&s.ID, &s.Title, &s.WorkspaceID, &s.UserID, &created, &updated, &last); err != nil {
		return nil, err
	}
	s.CreatedAt = dbx.TimeFromDB(created)
	s.UpdatedAt = dbx.TimeFromDB(updated)
	if last.Valid {
		s.LastMessage = &last.String
	}
	return s, nil
}
