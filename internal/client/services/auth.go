// Package services contains the client's application services: sign-in
// against the server with an offline fallback, and the chat store that
// backs the chat view.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/auth"
	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/cryptox"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// Metadata keys holding the signed-in user.
const (
	keyToken        = "token"
	keyRefreshToken = "refresh_token"
	keyUserID       = "user_id"
	keyEmail        = "email"
	keySalt         = "salt"
	keyVerifier     = "verifier"
)

var credentialKeys = []string{keyToken, keyRefreshToken, keyUserID, keyEmail, keySalt, keyVerifier}

// AuthService signs the user in and out and keeps the gate in step.
//
// Login falls back to the locally cached verifier when the server is
// unreachable. Restore resumes a previous sign-in after a restart.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte) (string, error)
	Login(ctx context.Context, email string, password []byte) (auth.Credentials, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (auth.Credentials, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	api     client.Client
	db      *sql.DB
	gate    *auth.Gate
	log     logging.Logger
	release func()
}

func NewAuthService(api client.Client, db *sql.DB, gate *auth.Gate, log logging.Logger) AuthService {
	a := &authService{api: api, db: db, gate: gate, log: log}
	a.release = gate.Acquire(a.teardown)
	api.OnTokensRefreshed(a.tokensRefreshed)
	return a
}

func (a *authService) metadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// teardown forgets the signed-in user on the API client and in the cache.
func (a *authService) teardown(ctx context.Context) {
	a.api.ClearTokens()
	if err := a.metadataRepo(a.db).Delete(ctx, credentialKeys...); err != nil {
		a.log.Warn(ctx, "failed to clear cached credentials", "error", err)
	}
}

func (a *authService) tokensRefreshed(t client.Tokens) {
	ctx := context.Background()
	a.gate.UpdateTokens(t.AccessToken, t.RefreshToken)

	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.metadataRepo(tx)
		if err := repo.Set(ctx, keyToken, []byte(t.AccessToken)); err != nil {
			return err
		}
		return repo.Set(ctx, keyRefreshToken, []byte(t.RefreshToken))
	})
	if err != nil {
		a.log.Warn(ctx, "failed to cache refreshed tokens", "error", err)
	}
}

func (a *authService) Register(ctx context.Context, email string, password []byte) (string, error) {
	return a.api.Register(ctx, normalizeEmail(email), password)
}

// Login authenticates against the server and caches what a later offline
// login or Restore needs. When the server is unavailable the password is
// checked against the cached verifier instead.
func (a *authService) Login(ctx context.Context, email string, password []byte) (auth.Credentials, error) {
	email = normalizeEmail(email)
	if err := a.gate.Begin(); err != nil {
		return auth.Credentials{}, err
	}

	creds, err := a.onlineLogin(ctx, email, password)
	if errors.Is(err, client.ErrUnavailable) {
		creds, err = a.offlineLogin(ctx, email, password)
	}
	if err != nil {
		a.gate.Fail()
		return auth.Credentials{}, err
	}

	if err := a.gate.Complete(creds); err != nil {
		return auth.Credentials{}, err
	}
	a.log.Info(ctx, "signed in", "user_id", creds.UserID, "offline", creds.Offline)
	return creds, nil
}

func (a *authService) onlineLogin(ctx context.Context, email string, password []byte) (auth.Credentials, error) {
	t, err := a.api.Login(ctx, email, password)
	if err != nil {
		return auth.Credentials{}, err
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	key := cryptox.DeriveKey(password, salt)
	verifier := cryptox.MakeVerifier(key)
	common.WipeByteArray(key)

	values := map[string][]byte{
		keyToken:        []byte(t.AccessToken),
		keyRefreshToken: []byte(t.RefreshToken),
		keyUserID:       []byte(t.UserID),
		keyEmail:        []byte(email),
		keySalt:         salt,
		keyVerifier:     verifier,
	}
	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.metadataRepo(tx)
		for _, k := range credentialKeys {
			if err := repo.Set(ctx, k, values[k]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("offline data saving error: %w", err)
	}

	return auth.Credentials{
		Token:        t.AccessToken,
		RefreshToken: t.RefreshToken,
		UserID:       t.UserID,
		Email:        email,
	}, nil
}

// cached reads every credential key. A missing key yields a nil value.
func (a *authService) cached(ctx context.Context) (map[string][]byte, error) {
	all, err := a.metadataRepo(a.db).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(credentialKeys))
	for _, k := range credentialKeys {
		out[k] = all[k]
	}
	return out, nil
}

// offlineLogin verifies password against the cached verifier. It returns
// client.ErrUnavailable when nothing usable is cached.
func (a *authService) offlineLogin(ctx context.Context, email string, password []byte) (auth.Credentials, error) {
	m, err := a.cached(ctx)
	if err != nil {
		return auth.Credentials{}, err
	}
	if len(m[keyEmail]) == 0 || len(m[keyVerifier]) == 0 || len(m[keyUserID]) == 0 {
		return auth.Credentials{}, client.ErrUnavailable
	}
	if string(m[keyEmail]) != email || !cryptox.Verify(password, m[keySalt], m[keyVerifier]) {
		return auth.Credentials{}, client.ErrUnauthorized
	}

	creds := auth.Credentials{
		Token:        string(m[keyToken]),
		RefreshToken: string(m[keyRefreshToken]),
		UserID:       string(m[keyUserID]),
		Email:        email,
		Offline:      true,
	}
	a.api.SetTokens(client.Tokens{AccessToken: creds.Token, RefreshToken: creds.RefreshToken, UserID: creds.UserID})
	return creds, nil
}

// Restore resumes the cached sign-in and validates it with the server. An
// unreachable server leaves the user signed in offline; a rejected token
// wipes the cached credentials.
func (a *authService) Restore(ctx context.Context) (auth.Credentials, error) {
	if err := a.gate.Begin(); err != nil {
		return auth.Credentials{}, err
	}

	creds, err := a.restore(ctx)
	if err != nil {
		a.gate.Fail()
		if errors.Is(err, client.ErrUnauthorized) {
			a.teardown(ctx)
		}
		return auth.Credentials{}, err
	}

	if err := a.gate.Complete(creds); err != nil {
		return auth.Credentials{}, err
	}
	return creds, nil
}

func (a *authService) restore(ctx context.Context) (auth.Credentials, error) {
	m, err := a.cached(ctx)
	if err != nil {
		return auth.Credentials{}, err
	}
	if len(m[keyToken]) == 0 || len(m[keyUserID]) == 0 {
		return auth.Credentials{}, client.ErrLocalDataNotAvailable
	}

	a.api.SetTokens(client.Tokens{
		AccessToken:  string(m[keyToken]),
		RefreshToken: string(m[keyRefreshToken]),
		UserID:       string(m[keyUserID]),
	})

	user, err := a.api.Me(ctx)
	if errors.Is(err, client.ErrUnavailable) {
		return auth.Credentials{
			Token:        string(m[keyToken]),
			RefreshToken: string(m[keyRefreshToken]),
			UserID:       string(m[keyUserID]),
			Email:        string(m[keyEmail]),
			Offline:      true,
		}, nil
	}
	if err != nil {
		return auth.Credentials{}, err
	}

	// Me may have refreshed the pair.
	m, err = a.cached(ctx)
	if err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{
		Token:        string(m[keyToken]),
		RefreshToken: string(m[keyRefreshToken]),
		UserID:       user.ID,
		Email:        user.Email,
	}, nil
}

// Logout revokes the refresh token when the server is reachable and drops
// the gate either way.
func (a *authService) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.gate.Drop(ctx)
	if err != nil && !errors.Is(err, client.ErrUnavailable) {
		return err
	}
	return nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.api.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	a.release()
	return a.api.Close()
}
