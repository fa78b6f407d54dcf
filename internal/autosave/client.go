package autosave

import (
	"context"
	"encoding/json"

	"resumeStudio/internal/document"
)

// DocumentClient 是自动保存使用的文档级接口，由 apiclient.Client 实现。
type DocumentClient interface {
	GetDocument(ctx context.Context, id string) (*document.Document, error)
	UpdateDocument(ctx context.Context, id string, patch map[string]any) (*document.Document, error)
}

// EntityClient 是子实体级接口。返回值为服务端的原始 JSON，由调用方解码为具体类型。
type EntityClient interface {
	CreateEntity(ctx context.Context, documentID string, kind document.EntityKind, entity any) (json.RawMessage, error)
	UpdateEntity(ctx context.Context, documentID string, kind document.EntityKind, id uint, fields map[string]any) (json.RawMessage, error)
	DeleteEntity(ctx context.Context, documentID string, kind document.EntityKind, id uint) error
	DeleteLanguage(ctx context.Context, id uint) error
}

// Notifier 向用户展示一次性提示。
type Notifier interface {
	Success(message string)
	Error(message string, err error)
}

// NopNotifier 丢弃所有提示。
type NopNotifier struct{}

func (NopNotifier) Success(string)      {}
func (NopNotifier) Error(string, error) {}
