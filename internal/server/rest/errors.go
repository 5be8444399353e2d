package rest

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type errorResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// writeError maps service errors to status codes. Storage details never
// reach the client; unexpected errors are logged and reported as 500.
func (s *HTTPServer) writeError(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		c.JSON(http.StatusBadRequest, errorBody(validationMessage(err)))
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, errorBody(notFoundMsg))
	case errors.Is(err, common.ErrConflict):
		c.JSON(http.StatusConflict, errorBody("Already exists"))
	case errors.Is(err, common.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, errorBody(common.ErrTokenExpired.Error()))
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrRefreshTokenExpired):
		c.JSON(http.StatusUnauthorized, errorBody("Unauthorized"))
	case errors.Is(err, common.ErrExportDisabled):
		c.JSON(http.StatusServiceUnavailable, errorBody("Export is not configured"))
	default:
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("Internal server error"))
	}
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
	if msg == common.ErrValidation.Error() || msg == "" {
		return "Invalid request"
	}
	return msg
}

var fieldNamesOnce sync.Once

// useWireFieldNames makes validation errors report the json or form name
// of a field instead of its Go name.
func useWireFieldNames() {
	fieldNamesOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(wireFieldName)
		}
	})
}

func wireFieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// bindError reports a request that failed to bind. Only the first invalid
// field is named.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody(bindMessage(err)))
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return "Invalid request: " + fe.Field() + " is required"
	}
	return "Invalid request: " + fe.Field() + " is invalid"
}
