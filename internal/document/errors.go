package document

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound 文档或子实体不存在（或不属于当前用户）。
	ErrNotFound = errors.New("not found")
	// ErrNotArchived 恢复操作要求文档处于 archived 状态。
	ErrNotArchived = errors.New("document is not archived")
	// ErrNotPublic 公开读取时文档不存在或不是 public。
	ErrNotPublic = errors.New("document not found or not public")
	// ErrUnknownEntity 不支持的子实体类型。
	ErrUnknownEntity = errors.New("unknown entity kind")
	// ErrLimitReached 用户文档数量达到上限。
	ErrLimitReached = errors.New("document limit reached")
)

// ValidationError 在写入前拒绝格式错误的请求。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation 判断 err 链中是否包含 ValidationError。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", strings.TrimSpace(what), id, ErrNotFound)
}
