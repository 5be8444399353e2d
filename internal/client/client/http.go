package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"golang.org/x/sync/singleflight"
)

// HTTPClient talks to the REST API. It attaches the access token to every
// authenticated call and, when the server reports "token expired",
// refreshes the pair once and retries. Concurrent refreshes are collapsed
// into one request.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	onRefresh    func(Tokens)

	refreshGroup singleflight.Group
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) SetTokens(t Tokens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = t.AccessToken
	c.refreshToken = t.RefreshToken
}

func (c *HTTPClient) ClearTokens() {
	c.SetTokens(Tokens{})
}

// OnTokensRefreshed registers fn to receive every transparently refreshed pair.
func (c *HTTPClient) OnTokensRefreshed(fn func(Tokens)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

func (c *HTTPClient) tokens() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

type apiError struct {
	Error string `json:"error"`
}

type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, e.message)
}

// mapStatus turns a non-2xx response into a client sentinel, keeping the
// server's message for display.
func mapStatus(code int, message string) error {
	var sentinel error
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel = ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = ErrUnauthorized
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusConflict:
		sentinel = ErrConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		sentinel = ErrUnavailable
	default:
		return &statusError{code: code, message: message}
	}
	if message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func readError(resp *http.Response) string {
	var e apiError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}

// do performs one API call. in is encoded as the JSON body when non-nil and
// out receives the decoded response when non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	token := ""
	if authed {
		token, _ = c.tokens()
	}

	resp, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}

	if authed && resp.StatusCode == http.StatusUnauthorized {
		msg := readError(resp)
		resp.Body.Close()

		if msg != common.ErrTokenExpired.Error() {
			return mapStatus(resp.StatusCode, msg)
		}
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			return err
		}
		if resp, err = c.send(ctx, method, path, payload, fresh); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp.StatusCode, readError(resp))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// refresh exchanges the refresh token for a new pair. stale is the access
// token that was rejected; if another call already replaced it, the current
// token is returned without a second round trip.
func (c *HTTPClient) refresh(ctx context.Context, stale string) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		access, refresh := c.tokens()
		if access != stale && access != "" {
			return access, nil
		}
		if refresh == "" {
			return nil, ErrUnauthorized
		}

		var t Tokens
		if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{"refreshToken": refresh}, &t, false); err != nil {
			if errors.Is(err, ErrUnavailable) {
				return nil, err
			}
			return nil, ErrUnauthorized
		}

		c.mu.Lock()
		c.accessToken, c.refreshToken = t.AccessToken, t.RefreshToken
		hook := c.onRefresh
		c.mu.Unlock()

		if hook != nil {
			hook(t)
		}
		return t.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/ping", nil, &resp, false); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *HTTPClient) Register(ctx context.Context, email string, password []byte) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{Email: email, Password: string(password)}, &resp, false); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Login authenticates and keeps the issued tokens for later calls.
func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*Tokens, error) {
	var t Tokens
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{Email: email, Password: string(password)}, &t, false); err != nil {
		return nil, err
	}
	c.SetTokens(t)
	return &t, nil
}

// Logout revokes the refresh token on the server and forgets both tokens.
func (c *HTTPClient) Logout(ctx context.Context) error {
	_, refresh := c.tokens()
	c.ClearTokens()
	if refresh == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/api/auth/logout", map[string]string{"refreshToken": refresh}, nil, false)
}

func (c *HTTPClient) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

func sessionPath(id string, suffix ...string) string {
	return "/api/sessions/" + url.PathEscape(id) + strings.Join(suffix, "")
}

func (c *HTTPClient) ListSessions(ctx context.Context, workspaceID string) ([]models.Session, error) {
	q := url.Values{"workspaceId": {workspaceID}}
	var list []models.Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions?"+q.Encode(), nil, &list, true); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, sessionID string) (*models.Transcript, error) {
	var t models.Transcript
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID), nil, &t, true); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) CreateSession(ctx context.Context, title, workspaceID, userID string) (*models.Session, error) {
	req := struct {
		Title       string `json:"title"`
		WorkspaceID string `json:"workspaceId"`
		UserID      string `json:"userId,omitempty"`
	}{title, workspaceID, userID}

	var s models.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &s, true); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) AppendMessage(ctx context.Context, sessionID, role, content string) (*models.Message, error) {
	req := struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{role, content}

	var m models.Message
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "/messages"), req, &m, true); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) RenameSession(ctx context.Context, sessionID, title string) (string, error) {
	var resp struct {
		Title string `json:"title"`
	}
	if err := c.do(ctx, http.MethodPatch, sessionPath(sessionID, "/title"), map[string]string{"title": title}, &resp, true); err != nil {
		return "", err
	}
	return resp.Title, nil
}

func (c *HTTPClient) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(sessionID), nil, nil, true)
}

func (c *HTTPClient) ExportSession(ctx context.Context, sessionID string) (*models.ExportLink, error) {
	var l models.ExportLink
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "/export"), nil, &l, true); err != nil {
		return nil, err
	}
	return &l, nil
}
