package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/migrations"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := dbx.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

// fakeAPI is an in-memory client.Client. Errors keyed by method name are
// returned instead of doing the call.
type fakeAPI struct {
	mu sync.Mutex

	errs     map[string]error
	calls    map[string]int
	sessions map[string]*models.Session
	messages map[string][]models.Message
	users    map[string]string // email -> password
	tokens   client.Tokens
	cleared  int
	onLogin  client.Tokens
	me       client.User
	clock    time.Time

	onRefresh func(client.Tokens)

	// appendHook runs before AppendMessage stores anything.
	appendHook func(role, content string)
	// getHook runs before GetSession answers.
	getHook func(id string)
}

var _ client.Client = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		errs:     make(map[string]error),
		calls:    make(map[string]int),
		sessions: make(map[string]*models.Session),
		messages: make(map[string][]models.Message),
		users:    make(map[string]string),
		clock:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAPI) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// enter records a call and returns the injected error, if any.
func (f *fakeAPI) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.errs[method]
}

func (f *fakeAPI) now() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeAPI) Close() error { return f.enter("Close") }

func (f *fakeAPI) Ping(ctx context.Context) error { return f.enter("Ping") }

func (f *fakeAPI) Register(ctx context.Context, email string, password []byte) (string, error) {
	if err := f.enter("Register"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return "", client.ErrConflict
	}
	f.users[email] = string(password)
	return uuid.NewString(), nil
}

func (f *fakeAPI) Login(ctx context.Context, email string, password []byte) (*client.Tokens, error) {
	if err := f.enter("Login"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.users[email]; !ok || pw != string(password) {
		return nil, client.ErrUnauthorized
	}
	f.tokens = f.onLogin
	t := f.onLogin
	return &t, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	err := f.enter("Logout")
	f.ClearTokens()
	return err
}

func (f *fakeAPI) Me(ctx context.Context) (*client.User, error) {
	if err := f.enter("Me"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	u := f.me
	f.mu.Unlock()
	return &u, nil
}

func (f *fakeAPI) SetTokens(t client.Tokens) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = t
}

func (f *fakeAPI) ClearTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = client.Tokens{}
	f.cleared++
}

func (f *fakeAPI) currentTokens() client.Tokens {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens
}

func (f *fakeAPI) OnTokensRefreshed(fn func(client.Tokens)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRefresh = fn
}

// refreshTo simulates a transparent refresh inside the client.
func (f *fakeAPI) refreshTo(t client.Tokens) {
	f.mu.Lock()
	f.tokens = t
	hook := f.onRefresh
	f.mu.Unlock()
	if hook != nil {
		hook(t)
	}
}

func (f *fakeAPI) addSession(id, ws, title string) models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	at := f.now()
	s := &models.Session{ID: id, Title: title, WorkspaceID: ws, UserID: "u1", CreatedAt: at, UpdatedAt: at}
	f.sessions[id] = s
	return *s
}

func (f *fakeAPI) ListSessions(ctx context.Context, workspaceID string) ([]models.Session, error) {
	if err := f.enter("ListSessions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.WorkspaceID == workspaceID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeAPI) GetSession(ctx context.Context, sessionID string) (*models.Transcript, error) {
	f.mu.Lock()
	hook := f.getHook
	f.mu.Unlock()
	if hook != nil {
		hook(sessionID)
	}
	if err := f.enter("GetSession"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, client.ErrNotFound
	}
	return &models.Transcript{
		Session:  *s,
		Messages: append([]models.Message(nil), f.messages[sessionID]...),
	}, nil
}

func (f *fakeAPI) CreateSession(ctx context.Context, title, workspaceID, userID string) (*models.Session, error) {
	if err := f.enter("CreateSession"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	at := f.now()
	s := &models.Session{ID: uuid.NewString(), Title: title, WorkspaceID: workspaceID, UserID: userID, CreatedAt: at, UpdatedAt: at}
	f.sessions[s.ID] = s
	out := *s
	return &out, nil
}

func (f *fakeAPI) AppendMessage(ctx context.Context, sessionID, role, content string) (*models.Message, error) {
	f.mu.Lock()
	hook := f.appendHook
	f.mu.Unlock()
	if hook != nil {
		hook(role, content)
	}
	if err := f.enter("AppendMessage"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, client.ErrNotFound
	}
	m := models.Message{ID: uuid.NewString(), SessionID: sessionID, Role: role, Content: content, CreatedAt: f.now()}
	f.messages[sessionID] = append(f.messages[sessionID], m)
	s.UpdatedAt = m.CreatedAt
	last := content
	s.LastMessage = &last
	return &m, nil
}

func (f *fakeAPI) RenameSession(ctx context.Context, sessionID, title string) (string, error) {
	if err := f.enter("RenameSession"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return "", client.ErrNotFound
	}
	s.Title = title
	s.UpdatedAt = f.now()
	return title, nil
}

func (f *fakeAPI) DeleteSession(ctx context.Context, sessionID string) error {
	if err := f.enter("DeleteSession"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	delete(f.messages, sessionID)
	return nil
}

func (f *fakeAPI) ExportSession(ctx context.Context, sessionID string) (*models.ExportLink, error) {
	if err := f.enter("ExportSession"); err != nil {
		return nil, err
	}
	return &models.ExportLink{Key: "exports/" + sessionID + ".json", URL: "https://example.test/" + sessionID}, nil
}
