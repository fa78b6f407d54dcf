package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/cache"
	"resumeStudio/internal/document"
	"resumeStudio/internal/metrics"
	"resumeStudio/internal/storage"
)

// DocumentCache 缓存完整的文档聚合，由 cache.DocumentCache 实现。
type DocumentCache interface {
	Get(ctx context.Context, id string) (*document.Document, bool, error)
	Set(ctx context.Context, doc *document.Document) error
	Invalidate(ctx context.Context, id string) error
}

// EventPublisher 向同一用户的其它会话广播文档变化。
type EventPublisher interface {
	Publish(ctx context.Context, userID uint, ev cache.Event) error
}

// ObjectStorage 是缩略图需要的对象存储能力，由 storage.Client 实现。
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// VirusScanner 扫描上传内容，由 storage.ClamdScanner 实现。
type VirusScanner interface {
	Scan(r io.Reader) error
}

// DocumentDeps 是 DocumentHandler 的可选依赖，nil 表示该能力未启用。
type DocumentDeps struct {
	Cache   DocumentCache
	Events  EventPublisher
	Storage ObjectStorage
	Scanner VirusScanner
}

// DocumentHandler 处理文档及其子实体的 API 请求。
type DocumentHandler struct {
	service *document.Service
	deps    DocumentDeps
	logger  *slog.Logger
}

func NewDocumentHandler(service *document.Service, deps DocumentDeps, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, deps: deps, logger: logger}
}

type createDocumentRequest struct {
	Title string `json:"title" binding:"required"`
}

// ListDocuments 返回未归档的文档。
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	docs, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		loggerFrom(c, h.logger).Error("list documents failed", slog.Any("error", err))
		writeDocumentError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// ListTrash 返回已归档的文档。
func (h *DocumentHandler) ListTrash(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	docs, err := h.service.ListArchived(c.Request.Context(), userID)
	if err != nil {
		loggerFrom(c, h.logger).Error("list trash failed", slog.Any("error", err))
		writeDocumentError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body", err)
		return
	}

	doc, err := h.service.Create(c.Request.Context(), userID, req.Title)
	if err != nil {
		writeDocumentError(c, err)
		return
	}

	h.afterWrite(c, userID, doc.ID, cache.EventDocumentCreated, "create")
	c.JSON(http.StatusCreated, doc)
}

// GetDocument 返回完整聚合，优先读取缓存。
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id := c.Param("id")
	if doc, hit := h.cached(c, id); hit && doc.UserID == userID {
		c.JSON(http.StatusOK, doc)
		return
	}

	doc, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	h.store(c, doc)
	c.JSON(http.StatusOK, doc)
}

// GetPublicDocument 无需登录，只返回 public 状态的文档。
func (h *DocumentHandler) GetPublicDocument(c *gin.Context) {
	id := c.Param("id")
	if doc, hit := h.cached(c, id); hit && doc.Status == document.StatusPublic {
		c.JSON(http.StatusOK, doc)
		return
	}

	doc, err := h.service.GetPublic(c.Request.Context(), id)
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	h.store(c, doc)
	c.JSON(http.StatusOK, doc)
}

// UpdateDocument 部分更新：未携带的字段保持不变，数组按 id upsert。
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var patch document.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, "invalid request body", err)
		return
	}
	keys := patch.Keys()
	if len(keys) == 0 {
		BadRequest(c, "no fields to update", nil)
		return
	}
	metrics.ObservePatchKeys(len(keys))

	id := c.Param("id")
	doc, err := h.service.Update(c.Request.Context(), userID, id, patch)
	if err != nil {
		writeDocumentError(c, err)
		return
	}

	event := cache.EventDocumentUpdated
	if patch.Status != nil && *patch.Status == document.StatusArchived {
		event = cache.EventDocumentArchived
	}
	h.afterWrite(c, userID, id, event, "update")
	c.JSON(http.StatusOK, doc)
}

// RestoreDocument 把回收站中的文档恢复为 private。
func (h *DocumentHandler) RestoreDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id := c.Param("id")
	doc, err := h.service.Restore(c.Request.Context(), userID, id)
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	h.afterWrite(c, userID, id, cache.EventDocumentRestored, "restore")
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) DuplicateDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.service.Duplicate(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	h.afterWrite(c, userID, doc.ID, cache.EventDocumentCreated, "duplicate")
	c.JSON(http.StatusCreated, doc)
}

// DeleteDocument 硬删除文档、子实体以及缩略图对象。
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id := c.Param("id")
	if _, err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		writeDocumentError(c, err)
		return
	}
	h.removeThumbnails(c, id)
	h.afterWrite(c, userID, id, cache.EventDocumentDeleted, "delete")
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *DocumentHandler) removeThumbnails(c *gin.Context, documentID string) {
	if h.deps.Storage == nil {
		return
	}
	prefix := storage.ThumbnailPrefix(documentID)
	if err := h.deps.Storage.DeletePrefix(c.Request.Context(), prefix); err != nil {
		loggerFrom(c, h.logger).Error("delete thumbnails failed",
			slog.String("document_id", documentID),
			slog.Any("error", err),
		)
	}
}

func (h *DocumentHandler) cached(c *gin.Context, id string) (*document.Document, bool) {
	if h.deps.Cache == nil {
		return nil, false
	}
	doc, hit, err := h.deps.Cache.Get(c.Request.Context(), id)
	if err != nil {
		loggerFrom(c, h.logger).Warn("document cache lookup failed", slog.String("document_id", id), slog.Any("error", err))
		return nil, false
	}
	metrics.ObserveCacheLookup(hit)
	return doc, hit
}

func (h *DocumentHandler) store(c *gin.Context, doc *document.Document) {
	if h.deps.Cache == nil {
		return
	}
	if err := h.deps.Cache.Set(c.Request.Context(), doc); err != nil {
		loggerFrom(c, h.logger).Warn("document cache fill failed", slog.String("document_id", doc.ID), slog.Any("error", err))
	}
}

// afterWrite 在写入成功后使缓存失效并广播事件；这两步失败只记录日志。
func (h *DocumentHandler) afterWrite(c *gin.Context, userID uint, documentID string, event cache.EventType, operation string) {
	ctx := c.Request.Context()
	logger := loggerFrom(c, h.logger).With(slog.String("document_id", documentID))
	metrics.ObserveMutation(operation)

	if h.deps.Cache != nil {
		if err := h.deps.Cache.Invalidate(ctx, documentID); err != nil {
			logger.Warn("document cache invalidate failed", slog.Any("error", err))
		}
	}
	if h.deps.Events != nil {
		ev := cache.Event{Type: event, DocumentID: documentID, Origin: middleware.GetCorrelationID(c)}
		if err := h.deps.Events.Publish(ctx, userID, ev); err != nil {
			logger.Warn("publish document event failed", slog.String("event", string(event)), slog.Any("error", err))
		}
	}
}
