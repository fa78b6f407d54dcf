package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"resumeStudio/internal/document"
)

func documentPath(id string) string {
	return "/documents/" + url.PathEscape(id)
}

func entityPath(documentID string, kind document.EntityKind) string {
	return documentPath(documentID) + "/" + string(kind)
}

func (c *Client) ListDocuments(ctx context.Context) ([]document.Document, error) {
	var docs []document.Document
	if err := c.do(ctx, http.MethodGet, "/documents", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Client) ListTrash(ctx context.Context) ([]document.Document, error) {
	var docs []document.Document
	if err := c.do(ctx, http.MethodGet, "/trash", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	var doc document.Document
	if err := c.do(ctx, http.MethodGet, documentPath(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetPublicDocument 无需令牌。
func (c *Client) GetPublicDocument(ctx context.Context, id string) (*document.Document, error) {
	var doc document.Document
	if err := c.do(ctx, http.MethodGet, "/public"+documentPath(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) CreateDocument(ctx context.Context, title string) (*document.Document, error) {
	var doc document.Document
	if err := c.do(ctx, http.MethodPost, "/documents", map[string]string{"title": title}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocument 发送部分更新，patch 的键为文档 JSON 字段名。
func (c *Client) UpdateDocument(ctx context.Context, id string, patch map[string]any) (*document.Document, error) {
	var doc document.Document
	if err := c.do(ctx, http.MethodPatch, documentPath(id), patch, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, documentPath(id), nil, nil)
}

func (c *Client) RestoreDocument(ctx context.Context, id string) (*document.Document, error) {
	var doc document.Document
	if err := c.do(ctx, http.MethodPatch, documentPath(id)+"/restore", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) DuplicateDocument(ctx context.Context, id string) (*document.Document, error) {
	var doc document.Document
	if err := c.do(ctx, http.MethodPost, documentPath(id)+"/duplicate", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateEntity 返回服务端创建的实体原文，调用方按 kind 解码。
func (c *Client) CreateEntity(ctx context.Context, documentID string, kind document.EntityKind, entity any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, entityPath(documentID, kind)+"/create", entity, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) UpdateEntity(ctx context.Context, documentID string, kind document.EntityKind, id uint, fields map[string]any) (json.RawMessage, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("%s/%d", entityPath(documentID, kind), id)
	if err := c.do(ctx, http.MethodPatch, path, fields, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) DeleteEntity(ctx context.Context, documentID string, kind document.EntityKind, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", entityPath(documentID, kind), id), nil, nil)
}

// DeleteLanguage 语言使用独立的删除路由，不需要文档 ID。
func (c *Client) DeleteLanguage(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/languages/%d", id), nil, nil)
}
