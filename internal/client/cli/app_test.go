package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/auth"
	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLoggedIn_FollowsGate(t *testing.T) {
	ta := newTestApp(t)
	assert.False(t, ta.isLoggedIn())

	ta.signIn()
	assert.True(t, ta.isLoggedIn())

	ta.gate.Drop(context.Background())
	assert.False(t, ta.isLoggedIn())
}

func TestSetMode_ChangesAndReportsOnce(t *testing.T) {
	ta := newTestApp(t)

	ta.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, ta.Mode())
	assert.Contains(t, ta.buf.String(), "Switched to online mode")

	ta.buf.Reset()
	ta.setMode(ModeOnline)
	assert.Empty(t, ta.buf.String())

	ta.setMode(ModeOffline)
	assert.Contains(t, ta.buf.String(), "Switched to offline mode")
}

func TestDroppedGateDisablesMode(t *testing.T) {
	ta := newTestApp(t)
	ta.signIn()

	ta.gate.Drop(context.Background())
	assert.Equal(t, ModeDisabled, ta.Mode())
	assert.Equal(t, auth.StateAnonymous, ta.gate.State())
}

func TestGetStatus(t *testing.T) {
	ta := newTestApp(t)
	assert.Equal(t, "", ta.getStatus())

	ta.signIn()
	assert.Equal(t, "(alice@example.com online)", ta.getStatus())

	ta.fc.view.Sessions = twoSessions()
	ta.fc.view.ActiveID = "s1"
	assert.Equal(t, "(alice@example.com online | First)", ta.getStatus())
}

func TestRestore(t *testing.T) {
	t.Run("resumes", func(t *testing.T) {
		ta := newTestApp(t)
		ta.fa.restoreCreds = auth.Credentials{UserID: "u1", Email: "alice@example.com", Offline: true}

		ta.restore(context.Background())
		assert.True(t, ta.isLoggedIn())
		assert.Equal(t, ModeOffline, ta.Mode())
		assert.Equal(t, []string{"load:w1"}, ta.fc.calls)
	})

	t.Run("nothing cached", func(t *testing.T) {
		ta := newTestApp(t)
		ta.fa.restoreErr = client.ErrLocalDataNotAvailable

		ta.restore(context.Background())
		assert.False(t, ta.isLoggedIn())
		assert.Contains(t, ta.buf.String(), "Type 'login'")
	})

	t.Run("rejected", func(t *testing.T) {
		ta := newTestApp(t)
		ta.fa.restoreErr = client.ErrUnauthorized

		ta.restore(context.Background())
		assert.False(t, ta.isLoggedIn())
		assert.Contains(t, ta.buf.String(), "Could not resume")
	})
}

func TestStartOnlineStatusWatcher_FlipsMode(t *testing.T) {
	ta := newTestApp(t)
	ta.signIn()
	ta.fa.pingErr = errors.New("down")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	ta.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)

	assert.Equal(t, ModeOffline, ta.Mode())
	assert.Positive(t, ta.fa.pings)
}

func TestStartOnlineStatusWatcher_SkipsWhenSignedOut(t *testing.T) {
	ta := newTestApp(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ta.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)

	assert.Zero(t, ta.fa.pings)
}

func TestRun_ExitsOnQuit(t *testing.T) {
	ta := newTestApp(t, "quit")
	ta.fa.restoreErr = client.ErrLocalDataNotAvailable
	silence(t)

	db := setupClosableDB(t)
	ta.db = db

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ta.Run(ctx)

	assert.True(t, ta.fa.closed)
	assert.Contains(t, ta.fc.calls, "close")
	require.Error(t, db.Ping(), "cache is closed on exit")
}
