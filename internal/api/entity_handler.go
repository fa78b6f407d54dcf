package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/cache"
	"resumeStudio/internal/document"
)

func parseEntityID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid "+name, err)
		return 0, false
	}
	return uint(id), true
}

func parseKind(c *gin.Context) (document.EntityKind, bool) {
	kind, err := document.ParseEntityKind(c.Param("entity"))
	if err != nil {
		writeDocumentError(c, err)
		return "", false
	}
	return kind, true
}

// CreateEntity 处理 POST /documents/:id/:entity/create。
func (h *DocumentHandler) CreateEntity(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	entity := kind.NewEntity()
	if err := c.ShouldBindJSON(entity); err != nil {
		BadRequest(c, "invalid request body", err)
		return
	}

	documentID := c.Param("id")
	created, err := h.service.CreateEntity(c.Request.Context(), userID, documentID, kind, entity)
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	h.afterWrite(c, userID, documentID, cache.EventDocumentUpdated, "create_"+string(kind))
	c.JSON(http.StatusCreated, created)
}

// UpdateEntity 处理 PATCH /documents/:id/:entity/:entityId，只更新携带的字段。
func (h *DocumentHandler) UpdateEntity(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	entityID, ok := parseEntityID(c, "entityId")
	if !ok {
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		BadRequest(c, "invalid request body", err)
		return
	}

	documentID := c.Param("id")
	updated, err := h.service.UpdateEntity(c.Request.Context(), userID, documentID, kind, entityID, fields)
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	h.afterWrite(c, userID, documentID, cache.EventDocumentUpdated, "update_"+string(kind))
	c.JSON(http.StatusOK, updated)
}

// DeleteEntity 处理 DELETE /documents/:id/:entity/:entityId。
func (h *DocumentHandler) DeleteEntity(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	entityID, ok := parseEntityID(c, "entityId")
	if !ok {
		return
	}

	documentID := c.Param("id")
	if err := h.service.DeleteEntity(c.Request.Context(), userID, documentID, kind, entityID); err != nil {
		writeDocumentError(c, err)
		return
	}
	h.afterWrite(c, userID, documentID, cache.EventDocumentUpdated, "delete_"+string(kind))
	c.JSON(http.StatusOK, gin.H{"id": entityID})
}

// DeleteLanguage 处理 DELETE /languages/:languageId，不需要文档 id。
func (h *DocumentHandler) DeleteLanguage(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	languageID, ok := parseEntityID(c, "languageId")
	if !ok {
		return
	}

	documentID, err := h.service.DeleteLanguage(c.Request.Context(), userID, languageID)
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	h.afterWrite(c, userID, documentID, cache.EventDocumentUpdated, "delete_language")
	c.JSON(http.StatusOK, gin.H{"id": languageID})
}
