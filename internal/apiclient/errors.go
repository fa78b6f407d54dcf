package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error 是服务端返回的非 2xx 响应。
type Error struct {
	Status  int
	Code    int
	Message string
	Detail  string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" {
		return fmt.Sprintf("api %d (code %d): %s: %s", e.Status, e.Code, msg, e.Detail)
	}
	return fmt.Sprintf("api %d (code %d): %s", e.Status, e.Code, msg)
}

func newError(status int, body []byte) *Error {
	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	e := &Error{Status: status}
	if err := json.Unmarshal(body, &payload); err != nil {
		e.Message = strings.TrimSpace(string(body))
		return e
	}
	e.Code = payload.Code
	e.Message = payload.Message
	e.Detail = payload.Error
	return e
}

// IsStatus 判断 err 是否为指定状态码的 *Error。
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func IsNotFound(err error) bool     { return IsStatus(err, http.StatusNotFound) }
func IsUnauthorized(err error) bool { return IsStatus(err, http.StatusUnauthorized) }
