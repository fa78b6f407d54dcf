package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/cache"
	"resumeStudio/internal/document"
	"resumeStudio/internal/errcode"
	"resumeStudio/internal/storage"
)

const (
	maxThumbnailSize = 5 << 20
	thumbnailURLTTL  = 15 * time.Minute
)

var thumbnailTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// UploadThumbnail 处理 POST /documents/:id/thumbnail：扫描、上传并替换旧缩略图。
func (h *DocumentHandler) UploadThumbnail(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if h.deps.Storage == nil {
		Error(c, http.StatusServiceUnavailable, errcode.Unavailable, "object storage is not configured", nil)
		return
	}

	documentID := c.Param("id")
	ctx := c.Request.Context()
	logger := loggerFrom(c, h.logger).With(slog.String("document_id", documentID))

	doc, err := h.service.Get(ctx, userID, documentID)
	if err != nil {
		writeDocumentError(c, err)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file", err)
		return
	}
	if file.Size <= 0 || file.Size > maxThumbnailSize {
		BadRequest(c, "file must be between 1 byte and 5MB", nil)
		return
	}
	contentType := strings.TrimSpace(file.Header.Get("Content-Type"))
	ext, allowed := thumbnailTypes[contentType]
	if !allowed {
		BadRequest(c, "unsupported image type", nil)
		return
	}

	if h.deps.Scanner != nil {
		reader, err := file.Open()
		if err != nil {
			Internal(c, "failed to open file", err)
			return
		}
		err = h.deps.Scanner.Scan(reader)
		reader.Close()
		if errors.Is(err, storage.ErrMalicious) {
			logger.Warn("malicious thumbnail rejected", slog.Any("error", err))
			BadRequest(c, "malicious file detected", nil)
			return
		}
		if err != nil {
			logger.Error("scan thumbnail failed", slog.Any("error", err))
			Internal(c, "failed to scan file", err)
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file", err)
		return
	}
	defer reader.Close()

	key := storage.NewThumbnailKey(documentID, ext)
	if _, err := h.deps.Storage.UploadFile(ctx, key, reader, file.Size, contentType); err != nil {
		logger.Error("upload thumbnail failed", slog.Any("error", err))
		Internal(c, "failed to upload file", err)
		return
	}

	if _, err := h.service.Update(ctx, userID, documentID, document.Patch{Thumbnail: &key}); err != nil {
		writeDocumentError(c, err)
		return
	}
	if previous := doc.Thumbnail; previous != "" && previous != key && storage.IsThumbnailKey(documentID, previous) {
		if err := h.deps.Storage.DeleteObject(ctx, previous); err != nil {
			logger.Warn("delete previous thumbnail failed", slog.String("object_key", previous), slog.Any("error", err))
		}
	}
	h.afterWrite(c, userID, documentID, cache.EventDocumentUpdated, "thumbnail")

	url, err := h.deps.Storage.GeneratePresignedURL(ctx, key, thumbnailURLTTL)
	if err != nil {
		logger.Warn("presign thumbnail failed", slog.Any("error", err))
	}
	c.JSON(http.StatusCreated, gin.H{"thumbnail": key, "url": url})
}

// GetThumbnailURL 返回当前缩略图的临时访问地址。
func (h *DocumentHandler) GetThumbnailURL(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if h.deps.Storage == nil {
		Error(c, http.StatusServiceUnavailable, errcode.Unavailable, "object storage is not configured", nil)
		return
	}

	documentID := c.Param("id")
	doc, err := h.service.Get(c.Request.Context(), userID, documentID)
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	if doc.Thumbnail == "" || !storage.IsThumbnailKey(documentID, doc.Thumbnail) {
		NotFound(c, "document has no thumbnail", nil)
		return
	}

	url, err := h.deps.Storage.GeneratePresignedURL(c.Request.Context(), doc.Thumbnail, thumbnailURLTTL)
	if err != nil {
		loggerFrom(c, h.logger).Error("presign thumbnail failed", slog.String("document_id", documentID), slog.Any("error", err))
		Internal(c, "failed to generate url", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "thumbnail": doc.Thumbnail})
}
