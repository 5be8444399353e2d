package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/assistant"
	"github.com/dmitrijs2005/gophchat/internal/client/auth"
	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/google/uuid"
)

// DefaultTitle names sessions created without a title.
const DefaultTitle = "New chat"

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrNoActiveSession = errors.New("no session is open")
	ErrSendInFlight    = errors.New("a message is already being sent in this session")
	ErrNotSignedIn     = errors.New("not signed in")
)

// ChatStore holds the sessions of one workspace and the messages of the
// active session, mirrored to the local cache.
//
// Every selection bumps a generation, and a transcript loaded under an older
// generation is discarded. Confirmed messages are shown whenever their
// session is the active one.
type ChatStore struct {
	api       client.Client
	db        *sql.DB
	responder assistant.Responder
	gate      *auth.Gate
	log       logging.Logger
	release   func()

	mu        sync.Mutex
	workspace string
	sessions  []models.Session
	activeID  string
	messages  []models.Message
	offline   bool
	gen       uint64
	inFlight  map[string]bool
	watchers  []func(models.View)
}

func NewChatStore(api client.Client, db *sql.DB, responder assistant.Responder, gate *auth.Gate, log logging.Logger) *ChatStore {
	s := &ChatStore{
		api:       api,
		db:        db,
		responder: responder,
		gate:      gate,
		log:       log,
		inFlight:  make(map[string]bool),
	}
	s.release = gate.Acquire(s.Reset)
	return s
}

// Close detaches the store from the gate.
func (s *ChatStore) Close() {
	s.release()
}

// OnChange registers fn to receive a snapshot after every state change.
func (s *ChatStore) OnChange(fn func(models.View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *ChatStore) notify() {
	s.mu.Lock()
	v := s.viewLocked()
	w := slices.Clone(s.watchers)
	s.mu.Unlock()

	for _, fn := range w {
		fn(v)
	}
}

func (s *ChatStore) View() models.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *ChatStore) viewLocked() models.View {
	return models.View{
		WorkspaceID: s.workspace,
		Sessions:    sortedSessions(s.sessions),
		ActiveID:    s.activeID,
		Messages:    append([]models.Message(nil), s.messages...),
		Offline:     s.offline,
	}
}

// Sessions returns the workspace sessions, most recently updated first.
func (s *ChatStore) Sessions() []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedSessions(s.sessions)
}

func sortedSessions(list []models.Session) []models.Session {
	out := append([]models.Session(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// fail routes a call error: a rejected identity drops the gate, an
// unreachable server flips the store offline.
func (s *ChatStore) fail(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		s.gate.Drop(ctx)
	case errors.Is(err, client.ErrUnavailable):
		s.setOffline(true)
	}
	return err
}

func (s *ChatStore) setOffline(v bool) {
	s.mu.Lock()
	changed := s.offline != v
	s.offline = v
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// upsertLocked replaces or prepends sess in the list.
func (s *ChatStore) upsertLocked(sess models.Session) {
	for i := range s.sessions {
		if s.sessions[i].ID == sess.ID {
			s.sessions[i] = sess
			return
		}
	}
	s.sessions = append([]models.Session{sess}, s.sessions...)
}

func (s *ChatStore) findLocked(id string) (models.Session, bool) {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return models.Session{}, false
}

func (s *ChatStore) cacheSession(ctx context.Context, sess models.Session) {
	if err := sessions.NewSQLiteRepository(s.db).Upsert(ctx, sess); err != nil {
		s.log.Warn(ctx, "failed to cache session", "session_id", sess.ID, "error", err)
	}
}

func (s *ChatStore) cacheMessage(ctx context.Context, sess models.Session, m models.Message) {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := sessions.NewSQLiteRepository(tx).Upsert(ctx, sess); err != nil {
			return err
		}
		return messages.NewSQLiteRepository(tx).Append(ctx, m)
	})
	if err != nil {
		s.log.Warn(ctx, "failed to cache message", "session_id", sess.ID, "error", err)
	}
}

// Load lists the workspace sessions, falling back to the cache when the
// server is unavailable. An empty workspace gets a default session.
func (s *ChatStore) Load(ctx context.Context, workspaceID string) error {
	list, err := s.api.ListSessions(ctx, workspaceID)
	offline := false
	switch {
	case errors.Is(err, client.ErrUnavailable):
		offline = true
		list, err = sessions.NewSQLiteRepository(s.db).List(ctx, workspaceID)
		if err != nil {
			return fmt.Errorf("%w: %w", client.ErrLocalDataNotAvailable, err)
		}
	case err != nil:
		return s.fail(ctx, err)
	default:
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return sessions.NewSQLiteRepository(tx).ReplaceWorkspace(ctx, workspaceID, list)
		})
		if err != nil {
			s.log.Warn(ctx, "failed to cache sessions", "workspace_id", workspaceID, "error", err)
		}
	}

	s.mu.Lock()
	if s.workspace != workspaceID {
		s.gen++
		s.activeID = ""
		s.messages = nil
	}
	s.workspace = workspaceID
	s.sessions = list
	s.offline = offline
	if _, ok := s.findLocked(s.activeID); !ok && s.activeID != "" {
		s.gen++
		s.activeID = ""
		s.messages = nil
	}
	s.mu.Unlock()
	s.notify()

	if len(list) == 0 && !offline {
		if _, err := s.Create(ctx, DefaultTitle); err != nil {
			return err
		}
	}
	return nil
}

// Select makes sessionID active and loads its messages. The messages are
// applied only if no other selection happened in the meantime. Messages
// confirmed while the transcript was loading are kept after it.
func (s *ChatStore) Select(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	if _, ok := s.findLocked(sessionID); !ok {
		s.mu.Unlock()
		return client.ErrNotFound
	}
	s.gen++
	gen := s.gen
	s.activeID = sessionID
	s.messages = nil
	s.mu.Unlock()
	s.notify()

	tr, err := s.api.GetSession(ctx, sessionID)
	var list []models.Message
	switch {
	case errors.Is(err, client.ErrUnavailable):
		s.setOffline(true)
		list, err = messages.NewSQLiteRepository(s.db).List(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("%w: %w", client.ErrLocalDataNotAvailable, err)
		}
	case errors.Is(err, client.ErrNotFound):
		s.forget(ctx, sessionID)
		return err
	case err != nil:
		return s.fail(ctx, err)
	default:
		list = tr.Messages
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := sessions.NewSQLiteRepository(tx).Upsert(ctx, tr.Session); err != nil {
				return err
			}
			return messages.NewSQLiteRepository(tx).Replace(ctx, sessionID, tr.Messages)
		})
		if err != nil {
			s.log.Warn(ctx, "failed to cache transcript", "session_id", sessionID, "error", err)
		}
	}

	s.mu.Lock()
	if tr != nil {
		s.upsertLocked(tr.Session)
		s.offline = false
	}
	if s.gen == gen {
		s.messages = mergeMessages(list, s.messages)
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Create starts a session in the current workspace and opens it.
func (s *ChatStore) Create(ctx context.Context, title string) (models.Session, error) {
	creds, ok := s.gate.Credentials()
	if !ok {
		return models.Session{}, ErrNotSignedIn
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}

	s.mu.Lock()
	ws := s.workspace
	s.mu.Unlock()

	sess, err := s.api.CreateSession(ctx, title, ws, creds.UserID)
	if err != nil {
		return models.Session{}, s.fail(ctx, err)
	}
	s.cacheSession(ctx, *sess)

	s.mu.Lock()
	s.upsertLocked(*sess)
	s.gen++
	s.activeID = sess.ID
	s.messages = nil
	s.offline = false
	s.mu.Unlock()
	s.notify()
	return *sess, nil
}

func (s *ChatStore) Rename(ctx context.Context, sessionID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return client.ErrValidation
	}

	got, err := s.api.RenameSession(ctx, sessionID, title)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			s.forget(ctx, sessionID)
		}
		return s.fail(ctx, err)
	}

	s.mu.Lock()
	sess, ok := s.findLocked(sessionID)
	if ok {
		sess.Title = got
		sess.UpdatedAt = time.Now().UTC()
		s.upsertLocked(sess)
	}
	s.mu.Unlock()

	if ok {
		s.cacheSession(ctx, sess)
	}
	s.notify()
	return nil
}

// Delete removes a session. Deleting the active session closes it.
func (s *ChatStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.api.DeleteSession(ctx, sessionID); err != nil {
		return s.fail(ctx, err)
	}
	s.forget(ctx, sessionID)
	return nil
}

// forget drops a session from memory and the cache.
func (s *ChatStore) forget(ctx context.Context, sessionID string) {
	if err := sessions.NewSQLiteRepository(s.db).Delete(ctx, sessionID); err != nil {
		s.log.Warn(ctx, "failed to remove cached session", "session_id", sessionID, "error", err)
	}

	s.mu.Lock()
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.ID != sessionID {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
	if s.activeID == sessionID {
		s.gen++
		s.activeID = ""
		s.messages = nil
	}
	s.mu.Unlock()
	s.notify()
}

// Send posts content to the active session and appends the assistant's
// reply. The user message shows up immediately as pending. Failures are
// returned and also shown as an error note in the conversation.
func (s *ChatStore) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	sessionID := s.activeID
	if sessionID == "" {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	if s.inFlight[sessionID] {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	s.inFlight[sessionID] = true
	pending := models.Message{
		ID:        "pending-" + uuid.NewString(),
		SessionID: sessionID,
		Role:      common.RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Pending:   true,
	}
	s.messages = append(s.messages, pending)
	history := append([]models.Message(nil), s.messages...)
	s.mu.Unlock()
	s.notify()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, sessionID)
		s.mu.Unlock()
	}()

	saved, err := s.api.AppendMessage(ctx, sessionID, common.RoleUser, content)
	if err != nil {
		s.annotate(sessionID, pending.ID, err)
		return s.fail(ctx, err)
	}
	s.applyMessage(ctx, pending.ID, *saved)

	reply, err := s.responder.Reply(ctx, history)
	if err != nil {
		s.annotate(sessionID, "", err)
		return err
	}

	answer, err := s.api.AppendMessage(ctx, sessionID, common.RoleAssistant, reply)
	if err != nil {
		s.annotate(sessionID, "", err)
		return s.fail(ctx, err)
	}
	s.applyMessage(ctx, "", *answer)
	return nil
}

// SendAsync runs Send in its own goroutine.
func (s *ChatStore) SendAsync(ctx context.Context, content string) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- s.Send(ctx, content)
		close(ch)
	}()
	return ch
}

// applyMessage records a confirmed message. When its session is on screen
// it replaces the pending entry with id replaces, or an entry with the same
// id, or is appended.
func (s *ChatStore) applyMessage(ctx context.Context, replaces string, m models.Message) {
	s.mu.Lock()
	sess, known := s.findLocked(m.SessionID)
	if known {
		content := m.Content
		sess.LastMessage = &content
		if m.CreatedAt.After(sess.UpdatedAt) {
			sess.UpdatedAt = m.CreatedAt
		}
		s.upsertLocked(sess)
	}
	if s.activeID == m.SessionID {
		placed := false
		for i := range s.messages {
			id := s.messages[i].ID
			if id == m.ID || (replaces != "" && id == replaces) {
				s.messages[i] = m
				placed = true
				break
			}
		}
		if !placed {
			s.messages = append(s.messages, m)
		}
	}
	s.offline = false
	s.mu.Unlock()

	if known {
		s.cacheMessage(ctx, sess, m)
	}
	s.notify()
}

// annotate flags the failed pending message, if any, and appends an error
// note. Nothing changes when the session is no longer on screen.
func (s *ChatStore) annotate(sessionID, pendingID string, cause error) {
	s.mu.Lock()
	if s.activeID != sessionID {
		s.mu.Unlock()
		return
	}
	for i := range s.messages {
		if pendingID != "" && s.messages[i].ID == pendingID {
			s.messages[i].Pending = false
			s.messages[i].Error = cause.Error()
		}
	}
	s.messages = append(s.messages, models.Message{
		ID:        "error-" + uuid.NewString(),
		SessionID: sessionID,
		Role:      common.RoleSystem,
		Content:   "Error: " + cause.Error(),
		CreatedAt: time.Now().UTC(),
		Error:     cause.Error(),
	})
	s.mu.Unlock()
	s.notify()
}

// mergeMessages returns loaded followed by the entries of current that
// loaded does not already hold.
func mergeMessages(loaded, current []models.Message) []models.Message {
	seen := make(map[string]bool, len(loaded))
	for _, m := range loaded {
		seen[m.ID] = true
	}
	out := loaded
	for _, m := range current {
		if !seen[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// Export uploads the active session's transcript.
func (s *ChatStore) Export(ctx context.Context) (*models.ExportLink, error) {
	s.mu.Lock()
	sessionID := s.activeID
	s.mu.Unlock()
	if sessionID == "" {
		return nil, ErrNoActiveSession
	}

	link, err := s.api.ExportSession(ctx, sessionID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return link, nil
}

// Reset forgets everything the store and the cache hold. It runs when the
// gate drops.
func (s *ChatStore) Reset(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	s.sessions = nil
	s.activeID = ""
	s.messages = nil
	s.offline = false
	s.mu.Unlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := messages.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return sessions.NewSQLiteRepository(tx).Clear(ctx)
	})
	if err != nil {
		s.log.Warn(ctx, "failed to clear chat cache", "error", err)
	}
	s.notify()
}
