package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/migrations"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*SQLiteRepository, *testDB) {
	t.Helper()
	db, err := dbx.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return NewSQLiteRepository(db), &testDB{db}
}

type testDB struct{ dbx.DBTX }

func (h *testDB) countMessages(t *testing.T, sessionID string) int {
	t.Helper()
	var n int
	require.NoError(t, h.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&n))
	return n
}

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func session(id, ws, user string, at time.Time) *models.Session {
	return &models.Session{ID: id, Title: "t-" + id, WorkspaceID: ws, UserID: user, CreatedAt: at, UpdatedAt: at}
}

func TestCreateAndGet(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, session("s1", "w1", "u1", base)))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t-s1", got.Title)
	assert.Equal(t, "w1", got.WorkspaceID)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.CreatedAt.Equal(base))
	assert.Nil(t, got.LastMessage)

	assert.ErrorIs(t, repo.Create(ctx, session("s1", "w1", "u1", base)), common.ErrConflict)
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_OrderAndScope(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, session("a", "w1", "u1", base)))
	require.NoError(t, repo.Create(ctx, session("b", "w1", "u1", base.Add(2*time.Minute))))
	require.NoError(t, repo.Create(ctx, session("c", "w1", "u1", base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, session("d", "w1", "u1", base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, session("other-ws", "w2", "u1", base)))
	require.NoError(t, repo.Create(ctx, session("other-user", "w1", "u2", base)))

	list, err := repo.List(ctx, "u1", "w1")
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids, "updated desc, ties newest insert first")

	empty, err := repo.List(ctx, "u1", "w-none")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestTouch_NeverMovesBackwards(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, session("s1", "w1", "u1", base)))

	require.NoError(t, repo.Touch(ctx, "s1", base.Add(time.Hour), "hello"))
	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, "hello", *got.LastMessage)

	require.NoError(t, repo.Touch(ctx, "s1", base.Add(-time.Hour), "older"))
	got, err = repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)), "clock skew must not rewind updated_at")
	assert.Equal(t, "older", *got.LastMessage)

	assert.ErrorIs(t, repo.Touch(ctx, "missing", base, "x"), common.ErrorNotFound)
}

func TestRename(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, session("s1", "w1", "u1", base)))
	require.NoError(t, repo.Rename(ctx, "s1", "New title", base.Add(time.Second)))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	assert.ErrorIs(t, repo.Rename(ctx, "missing", "x", base), common.ErrorNotFound)
}

func TestDelete_CascadesMessages(t *testing.T) {
	repo, h := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, session("s1", "w1", "u1", base)))
	for i, id := range []string{"m1", "m2", "m3"} {
		_, err := h.ExecContext(ctx, `INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, 's1', 'user', 'hi', ?)`, id, i)
		require.NoError(t, err)
	}
	require.Equal(t, 3, h.countMessages(t, "s1"))

	require.NoError(t, repo.Delete(ctx, "s1"))
	assert.Equal(t, 0, h.countMessages(t, "s1"))

	_, err := repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Delete(ctx, "s1"), "idempotent")
}

func TestList_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM sessions`).WillReturnError(errors.New("locked"))

	_, err = NewSQLiteRepository(db).List(context.Background(), "u1", "w1")
	assert.ErrorContains(t, err, "locked")
}
