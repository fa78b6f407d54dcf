package storage

import (
	"errors"
	"net/http"

	"github.com/minio/minio-go/v7"
)

// IsNoSuchKey 判断 MinIO 返回的错误是否表示对象不存在，支持被 %w 包装的错误。
func IsNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return resp.Code == "" && resp.StatusCode == http.StatusNotFound
}
