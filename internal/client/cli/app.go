package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/assistant"
	"github.com/dmitrijs2005/gophchat/internal/client/auth"
	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/services"
	"github.com/dmitrijs2005/gophchat/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// chatStore is the part of services.ChatStore the commands use.
type chatStore interface {
	Load(ctx context.Context, workspaceID string) error
	Sessions() []models.Session
	Select(ctx context.Context, sessionID string) error
	Create(ctx context.Context, title string) (models.Session, error)
	Rename(ctx context.Context, sessionID, title string) error
	Delete(ctx context.Context, sessionID string) error
	Send(ctx context.Context, content string) error
	Export(ctx context.Context) (*models.ExportLink, error)
	View() models.View
	Close()
}

type App struct {
	config      *config.Config
	authService services.AuthService
	chat        chatStore
	gate        *auth.Gate
	db          *sql.DB
	httpClient  *http.Client
	log         logging.Logger
	reader      *bufio.Reader
	out         io.Writer

	mu        sync.Mutex
	mode      Mode
	workspace string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewJSONLogger(os.Stderr, "warn")

	db, err := client.InitDatabase(ctx, c.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	gate := auth.NewGate()
	responder := assistant.New(c.AssistantAPIKey, c.AssistantBaseURL, c.AssistantModel)

	a := &App{
		config:      c,
		authService: services.NewAuthService(api, db, gate, log),
		chat:        services.NewChatStore(api, db, responder, gate, log),
		gate:        gate,
		db:          db,
		httpClient:  &http.Client{Timeout: c.RequestTimeout},
		log:         log,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		workspace:   c.WorkspaceID,
	}
	gate.OnStateChange(a.onGateChange)
	return a, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.println(MutedStyle.Render(fmt.Sprintf("Switched to %s mode", mode)))
	}
}

func (a *App) currentWorkspace() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workspace
}

// onGateChange reports a sign-out the user did not ask for.
func (a *App) onGateChange(s auth.State) {
	if s == auth.StateAnonymous && a.Mode() != ModeDisabled {
		a.setMode(ModeDisabled)
	}
}

func (a *App) isLoggedIn() bool {
	return a.gate.State() == auth.StateAuthenticated
}

// Run resumes a previous sign-in, starts the connectivity watcher and
// blocks in the REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.close(ctx)

	a.println(TitleStyle.Render("Welcome to GophChat CLI (type 'help' for commands)"))
	a.restore(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) close(ctx context.Context) {
	a.chat.Close()
	if err := a.authService.Close(ctx); err != nil {
		a.log.Warn(ctx, "failed to close api client", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn(ctx, "failed to close cache", "error", err)
	}
}

func (a *App) restore(ctx context.Context) {
	creds, err := a.authService.Restore(ctx)
	switch {
	case errors.Is(err, client.ErrLocalDataNotAvailable):
		a.println("Type 'login' to sign in or 'register' to create an account.")
		return
	case err != nil:
		a.println(ErrorStyle.Render("Could not resume your session: " + err.Error()))
		return
	}
	a.signedIn(ctx, creds)
}

// signedIn switches the mode and loads the workspace after any sign-in.
func (a *App) signedIn(ctx context.Context, creds auth.Credentials) {
	if creds.Offline {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
	a.println(SuccessStyle.Render("Signed in as " + creds.Email))

	if err := a.chat.Load(ctx, a.currentWorkspace()); err != nil {
		a.println(ErrorStyle.Render("Could not load sessions: " + err.Error()))
		return
	}
	a.println(renderSessions(a.chat.View()))
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// mode between online and offline while signed in.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !a.isLoggedIn() {
				continue
			}
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				if a.Mode() == ModeOnline {
					a.setMode(ModeOffline)
				}
			} else if a.Mode() != ModeOnline {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	s := ""
	if creds, ok := a.gate.Credentials(); ok {
		s = creds.Email + " "
	}
	if m := a.Mode(); m != "" {
		s += string(m)
	}
	if v := a.chat.View(); v.ActiveID != "" {
		if sess, ok := v.Active(); ok {
			s += " | " + sess.Title
		}
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}
