package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/document"
	"resumeStudio/internal/errcode"
)

// errorResponse 是所有错误响应的统一格式：code 供程序判断，message 供人阅读，
// error 透传底层错误详情。
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func Error(c *gin.Context, status, code int, message string, err error) {
	body := errorResponse{Code: code, Message: message}
	if err != nil {
		body.Error = err.Error()
	}
	c.JSON(status, body)
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Code: errcode.Unauthorized, Message: "unauthorized"})
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, errcode.Unauthorized, message, nil)
}

func BadRequest(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, errcode.ValidationFailed, message, err)
}

func Forbidden(c *gin.Context, message string, err error) {
	Error(c, http.StatusForbidden, errcode.Forbidden, message, err)
}

func NotFound(c *gin.Context, message string, err error) {
	Error(c, http.StatusNotFound, errcode.NotFound, message, err)
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, errcode.Conflict, message, nil)
}

func TooManyRequests(c *gin.Context, message string) {
	Error(c, http.StatusTooManyRequests, errcode.RateLimited, message, nil)
}

func Internal(c *gin.Context, message string, err error) {
	Error(c, http.StatusInternalServerError, errcode.SystemError, message, err)
}

// writeDocumentError 把 document 包的错误映射为 HTTP 响应。
func writeDocumentError(c *gin.Context, err error) {
	var ve *document.ValidationError
	switch {
	case errors.As(err, &ve):
		BadRequest(c, "validation failed", err)
	case errors.Is(err, document.ErrNotArchived):
		Error(c, http.StatusBadRequest, errcode.PreconditionFailed, "document is not in trash", err)
	case errors.Is(err, document.ErrNotPublic):
		Error(c, http.StatusUnauthorized, errcode.Unauthorized, "document is not public", err)
	case errors.Is(err, document.ErrUnknownEntity):
		NotFound(c, "unknown entity", err)
	case errors.Is(err, document.ErrNotFound):
		NotFound(c, "not found", err)
	case errors.Is(err, document.ErrLimitReached):
		Forbidden(c, "document limit reached", err)
	default:
		Internal(c, "internal error", err)
	}
}
