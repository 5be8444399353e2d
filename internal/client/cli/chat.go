package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/services"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/filex"
	"github.com/dmitrijs2005/gophchat/internal/netx"
)

// exportDir is created under the working directory for downloaded exports.
const exportDir = "exports"

var errUsage = errors.New("usage")

// report prints err in the error style and returns it.
func (a *App) report(prefix string, err error) error {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		a.println(ErrorStyle.Render("Your session has expired. Please log in again."))
	case errors.Is(err, client.ErrUnavailable):
		a.println(ErrorStyle.Render(prefix + ": server unavailable"))
	default:
		a.println(ErrorStyle.Render(prefix + ": " + err.Error()))
	}
	return err
}

// resolveSession turns a list number or a session id into an id.
func (a *App) resolveSession(arg string) (string, bool) {
	list := a.chat.Sessions()
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(list) {
			return list[n-1].ID, true
		}
		return "", false
	}
	for _, s := range list {
		if s.ID == arg {
			return s.ID, true
		}
	}
	return "", false
}

func (a *App) Sessions(ctx context.Context) error {
	if err := a.chat.Load(ctx, a.currentWorkspace()); err != nil {
		return a.report("Could not load sessions", err)
	}
	a.println(renderSessions(a.chat.View()))
	return nil
}

func (a *App) New(ctx context.Context, args []string) error {
	sess, err := a.chat.Create(ctx, strings.Join(args, " "))
	if err != nil {
		return a.report("Could not create session", err)
	}
	a.println(SuccessStyle.Render("Opened " + sess.Title))
	return nil
}

func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		a.println("Usage: open <n|id>")
		return errUsage
	}
	id, ok := a.resolveSession(args[0])
	if !ok {
		a.println(ErrorStyle.Render("No such session: " + args[0]))
		return client.ErrNotFound
	}
	if err := a.chat.Select(ctx, id); err != nil {
		return a.report("Could not open session", err)
	}

	v := a.chat.View()
	if sess, ok := v.Active(); ok {
		a.println(TitleStyle.Render(sess.Title))
	}
	a.println(renderMessages(v.Messages))
	return nil
}

func (a *App) Rename(ctx context.Context, args []string) error {
	title := strings.TrimSpace(strings.Join(args, " "))
	id := a.chat.View().ActiveID
	if title == "" || id == "" {
		a.println("Usage: rename <title> (with a session open)")
		return errUsage
	}
	if err := a.chat.Rename(ctx, id, title); err != nil {
		return a.report("Could not rename session", err)
	}
	a.println(SuccessStyle.Render("Renamed to " + title))
	return nil
}

// Delete removes the given session, or the open one, after confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	var id string
	switch len(args) {
	case 0:
		id = a.chat.View().ActiveID
	case 1:
		id, _ = a.resolveSession(args[0])
	}
	if id == "" {
		a.println("Usage: delete [n|id]")
		return errUsage
	}

	ok, err := Confirm(a.reader, "Delete this session and all its messages?", a.out)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := a.chat.Delete(ctx, id); err != nil {
		return a.report("Could not delete session", err)
	}
	a.println("Deleted.")
	return nil
}

// Export uploads the open transcript and downloads a copy into ./exports.
func (a *App) Export(ctx context.Context) error {
	link, err := a.chat.Export(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			a.println("Open a session first.")
			return err
		}
		return a.report("Export failed", err)
	}

	a.printf("Uploaded to %s (link %s)\n", link.Key, timeLeft(link.ExpiresAt, time.Now()))

	data, err := netx.DownloadPresignedURL(ctx, a.httpClient, link.URL)
	if err != nil {
		return a.report("Download failed", err)
	}
	dir, err := filex.EnsureSubDir(exportDir)
	if err != nil {
		return a.report("Download failed", err)
	}
	path := filepath.Join(dir, filepath.Base(link.Key))
	if err := filex.WriteFileAtomic(path, data); err != nil {
		return a.report("Download failed", err)
	}

	a.println(SuccessStyle.Render("Saved " + path))
	return nil
}

// Workspace switches to another workspace and loads its sessions.
func (a *App) Workspace(ctx context.Context, args []string) error {
	if len(args) != 1 {
		a.println("Current workspace: " + a.currentWorkspace())
		return nil
	}
	a.mu.Lock()
	a.workspace = args[0]
	a.mu.Unlock()
	return a.Sessions(ctx)
}

// Send posts a line to the open session and prints what came back.
func (a *App) Send(ctx context.Context, line string) error {
	before := len(a.chat.View().Messages)

	err := a.chat.Send(ctx, line)
	switch {
	case errors.Is(err, services.ErrNoActiveSession):
		a.println("No session is open. Use 'new' or 'open <n>', or 'help'.")
		return err
	case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrSendInFlight):
		a.println(err.Error())
		return err
	case errors.Is(err, client.ErrUnauthorized):
		return a.report("", err)
	}

	v := a.chat.View()
	if before > len(v.Messages) {
		before = 0
	}
	for _, m := range v.Messages[before:] {
		if m.Role == common.RoleUser && m.Error == "" {
			continue
		}
		a.println(renderMessage(m))
	}
	return err
}
