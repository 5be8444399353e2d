package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/gin-gonic/gin"
)

type credentialsReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type tokenResp struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	UserID       string    `json:"userId"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func newTokenResp(p *services.TokenPair) tokenResp {
	return tokenResp{Token: p.AccessToken, RefreshToken: p.RefreshToken, UserID: p.UserID, ExpiresAt: p.ExpiresAt}
}

func (s *HTTPServer) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *HTTPServer) Register(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := s.users.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			c.JSON(http.StatusConflict, errorBody("Email already exists"))
			return
		}
		s.writeError(c, err, "")
		return
	}

	s.logger.Info(c.Request.Context(), "Registered", "user_id", user.ID)
	c.JSON(http.StatusCreated, gin.H{"id": user.ID})
}

func (s *HTTPServer) Login(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("Invalid credentials"))
		return
	}

	pair, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			c.JSON(http.StatusUnauthorized, errorBody("Invalid credentials"))
			return
		}
		s.writeError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, newTokenResp(pair))
}

func (s *HTTPServer) Refresh(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	pair, err := s.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, newTokenResp(pair))
}

// Logout revokes the refresh token; the token itself is the credential, so
// an expired access token does not block signing out.
func (s *HTTPServer) Logout(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := s.users.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		s.writeError(c, err, "")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) Me(c *gin.Context) {
	user, err := s.users.Me(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "email": user.Email})
}
