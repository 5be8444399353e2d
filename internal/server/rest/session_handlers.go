package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const sessionNotFound = "Session not found"

type createSessionReq struct {
	Title       string `json:"title" binding:"required"`
	WorkspaceID string `json:"workspaceId" binding:"required"`
	UserID      string `json:"userId"`
}

type listSessionsReq struct {
	WorkspaceID string `form:"workspaceId" binding:"required"`
	UserID      string `form:"userId"`
}

type appendMessageReq struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type renameReq struct {
	Title string `json:"title" binding:"required"`
}

// sameOwner rejects requests that name a user other than the token's owner.
func sameOwner(c *gin.Context, requested string) bool {
	if requested != "" && requested != currentUserID(c) {
		c.JSON(http.StatusBadRequest, errorBody("userId does not match the authenticated user"))
		return false
	}
	return true
}

func (s *HTTPServer) CreateSession(c *gin.Context) {
	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !sameOwner(c, req.UserID) {
		return
	}

	session, err := s.sessions.CreateSession(c.Request.Context(), req.Title, req.WorkspaceID, currentUserID(c))
	if err != nil {
		s.writeError(c, err, sessionNotFound)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *HTTPServer) ListSessions(c *gin.Context) {
	var req listSessionsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	if !sameOwner(c, req.UserID) {
		return
	}

	list, err := s.sessions.ListSessions(c.Request.Context(), currentUserID(c), req.WorkspaceID)
	if err != nil {
		s.writeError(c, err, sessionNotFound)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *HTTPServer) GetSession(c *gin.Context) {
	t, err := s.sessions.GetSession(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err, sessionNotFound)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *HTTPServer) AppendMessage(c *gin.Context) {
	var req appendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	msg, err := s.sessions.AppendMessage(c.Request.Context(), currentUserID(c), c.Param("id"), req.Role, req.Content)
	if err != nil {
		s.writeError(c, err, sessionNotFound)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (s *HTTPServer) RenameSession(c *gin.Context) {
	var req renameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	title, err := s.sessions.RenameSession(c.Request.Context(), currentUserID(c), c.Param("id"), req.Title)
	if err != nil {
		s.writeError(c, err, sessionNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": title})
}

func (s *HTTPServer) DeleteSession(c *gin.Context) {
	if err := s.sessions.DeleteSession(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		s.writeError(c, err, sessionNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) ExportSession(c *gin.Context) {
	res, err := s.exports.Export(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err, sessionNotFound)
		return
	}
	c.JSON(http.StatusOK, res)
}
