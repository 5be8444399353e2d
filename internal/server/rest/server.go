// Package rest exposes the session store and the auth service as a JSON
// API over HTTP.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/gin-gonic/gin"
)

type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (*models.User, error)
	Authenticate(accessToken string) (string, error)
}

type SessionService interface {
	CreateSession(ctx context.Context, title, workspaceID, ownerID string) (*models.Session, error)
	ListSessions(ctx context.Context, ownerID, workspaceID string) ([]models.Session, error)
	GetSession(ctx context.Context, ownerID, sessionID string) (*models.Transcript, error)
	AppendMessage(ctx context.Context, ownerID, sessionID, role, content string) (*models.Message, error)
	RenameSession(ctx context.Context, ownerID, sessionID, title string) (string, error)
	DeleteSession(ctx context.Context, ownerID, sessionID string) error
}

type ExportService interface {
	Export(ctx context.Context, ownerID, sessionID string) (*services.ExportResult, error)
}

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	address  string
	logger   logging.Logger
	users    UserService
	sessions SessionService
	exports  ExportService
}

func NewHTTPServer(a string, l logging.Logger, us UserService, ss SessionService, es ExportService) *HTTPServer {
	return &HTTPServer{
		address:  a,
		logger:   l.With("module", "http_server"),
		users:    us,
		sessions: ss,
		exports:  es,
	}
}

// Router builds the gin engine with every route registered.
func (s *HTTPServer) Router() *gin.Engine {
	useWireFieldNames()

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.GET("/ping", s.Ping)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", s.Register)
		authGroup.POST("/login", s.Login)
		authGroup.POST("/refresh", s.Refresh)
		authGroup.POST("/logout", s.Logout)
		authGroup.GET("/me", s.requireAuth(), s.Me)
	}

	sessions := api.Group("/sessions", s.requireAuth())
	{
		sessions.POST("", s.CreateSession)
		sessions.GET("", s.ListSessions)
		sessions.GET("/:id", s.GetSession)
		sessions.POST("/:id/messages", s.AppendMessage)
		sessions.PATCH("/:id/title", s.RenameSession)
		sessions.DELETE("/:id", s.DeleteSession)
		sessions.GET("/:id/export", s.ExportSession)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
