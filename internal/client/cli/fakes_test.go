package cli

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/auth"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	gate *auth.Gate

	regEmail string
	regPass  []byte
	regErr   error

	loginEmail string
	loginPass  []byte
	loginCreds auth.Credentials
	loginErr   error

	restoreCreds auth.Credentials
	restoreErr   error

	logoutCalled bool
	logoutErr    error

	pingErr error
	pings   int
	closed  bool
}

func (f *fakeAuth) Register(_ context.Context, email string, pass []byte) (string, error) {
	f.regEmail, f.regPass = email, append([]byte(nil), pass...)
	return "id-1", f.regErr
}

func (f *fakeAuth) complete(c auth.Credentials) {
	_ = f.gate.Begin()
	_ = f.gate.Complete(c)
}

func (f *fakeAuth) Login(_ context.Context, email string, pass []byte) (auth.Credentials, error) {
	f.loginEmail, f.loginPass = email, append([]byte(nil), pass...)
	if f.loginErr != nil {
		return auth.Credentials{}, f.loginErr
	}
	f.complete(f.loginCreds)
	return f.loginCreds, nil
}

func (f *fakeAuth) Restore(context.Context) (auth.Credentials, error) {
	if f.restoreErr != nil {
		return auth.Credentials{}, f.restoreErr
	}
	f.complete(f.restoreCreds)
	return f.restoreCreds, nil
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.logoutCalled = true
	f.gate.Drop(ctx)
	return f.logoutErr
}

func (f *fakeAuth) Ping(context.Context) error {
	f.pings++
	return f.pingErr
}

func (f *fakeAuth) Close(context.Context) error {
	f.closed = true
	return nil
}

type fakeChat struct {
	view  models.View
	calls []string

	loadErr   error
	selectErr error
	sendErr   error
	export    *models.ExportLink
	exportErr error

	// reply is appended by Send when sendErr is nil.
	reply string
}

func (f *fakeChat) Load(_ context.Context, ws string) error {
	f.calls = append(f.calls, "load:"+ws)
	f.view.WorkspaceID = ws
	return f.loadErr
}

func (f *fakeChat) Sessions() []models.Session {
	return append([]models.Session(nil), f.view.Sessions...)
}

func (f *fakeChat) Select(_ context.Context, id string) error {
	f.calls = append(f.calls, "select:"+id)
	if f.selectErr != nil {
		return f.selectErr
	}
	f.view.ActiveID = id
	return nil
}

func (f *fakeChat) Create(_ context.Context, title string) (models.Session, error) {
	f.calls = append(f.calls, "create:"+title)
	s := models.Session{ID: "new-id", Title: title}
	if s.Title == "" {
		s.Title = "New chat"
	}
	f.view.Sessions = append([]models.Session{s}, f.view.Sessions...)
	f.view.ActiveID = s.ID
	return s, nil
}

func (f *fakeChat) Rename(_ context.Context, id, title string) error {
	f.calls = append(f.calls, "rename:"+id+":"+title)
	return nil
}

func (f *fakeChat) Delete(_ context.Context, id string) error {
	f.calls = append(f.calls, "delete:"+id)
	return nil
}

func (f *fakeChat) Send(_ context.Context, content string) error {
	f.calls = append(f.calls, "send:"+content)
	f.view.Messages = append(f.view.Messages, models.Message{Role: "user", Content: content})
	if f.sendErr != nil {
		f.view.Messages[len(f.view.Messages)-1].Error = f.sendErr.Error()
		f.view.Messages = append(f.view.Messages, models.Message{
			Role: "system", Content: "Error: " + f.sendErr.Error(), Error: f.sendErr.Error(),
		})
		return f.sendErr
	}
	f.view.Messages = append(f.view.Messages, models.Message{Role: "assistant", Content: f.reply})
	return nil
}

func (f *fakeChat) Export(context.Context) (*models.ExportLink, error) {
	f.calls = append(f.calls, "export")
	return f.export, f.exportErr
}

func (f *fakeChat) View() models.View { return f.view }

func (f *fakeChat) Close() { f.calls = append(f.calls, "close") }

func twoSessions() []models.Session {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return []models.Session{
		{ID: "s2", Title: "Second", WorkspaceID: "w1", UpdatedAt: at.Add(time.Hour)},
		{ID: "s1", Title: "First", WorkspaceID: "w1", UpdatedAt: at},
	}
}

type testApp struct {
	*App
	fa  *fakeAuth
	fc  *fakeChat
	buf *bytes.Buffer
}

func newTestApp(t *testing.T, input ...string) *testApp {
	t.Helper()
	gate := auth.NewGate()
	fa := &fakeAuth{gate: gate, loginCreds: auth.Credentials{UserID: "u1", Email: "alice@example.com"}}
	fc := &fakeChat{}
	out := &bytes.Buffer{}

	a := &App{
		config:      &config.Config{OnlineCheckInterval: 10 * time.Millisecond, WorkspaceID: "w1"},
		authService: fa,
		chat:        fc,
		gate:        gate,
		httpClient:  http.DefaultClient,
		log:         logging.NewDiscardLogger(),
		reader:      bufio.NewReader(strings.NewReader(strings.Join(input, "\n"))),
		out:         out,
		workspace:   "w1",
	}
	gate.OnStateChange(a.onGateChange)
	return &testApp{App: a, fa: fa, fc: fc, buf: out}
}

// signIn puts the app into the signed-in state without prompting.
func (ta *testApp) signIn() {
	ta.fa.complete(ta.fa.loginCreds)
	ta.setMode(ModeOnline)
}

func stubInputs(t *testing.T, email string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return email, nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

func setupClosableDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := dbx.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
