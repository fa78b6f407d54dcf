package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/auth"
	"resumeStudio/internal/document"
)

// Dependencies 汇总路由层需要的组件。Redis 为 nil 时关闭限流、令牌吊销与 WebSocket 推送。
type Dependencies struct {
	DB                    *gorm.DB
	Documents             *document.Service
	Auth                  *auth.AuthService
	Redis                 redis.UniversalClient
	Logger                *slog.Logger
	Document              DocumentDeps
	AllowedOrigins        []string
	LoginRateLimitPerHour int
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := NewAuthHandler(deps.DB, deps.Auth, deps.Redis, deps.Logger, deps.LoginRateLimitPerHour)
	documentHandler := NewDocumentHandler(deps.Documents, deps.Document, deps.Logger)
	authMiddleware := middleware.AuthMiddleware(deps.Auth)

	v1 := router.Group("/v1")
	{
		if deps.Redis != nil {
			wsHandler := NewWsHandler(deps.Redis, deps.Auth, deps.Logger, deps.AllowedOrigins)
			v1.GET("/ws", wsHandler.HandleConnection)
		}

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
		}

		v1.GET("/public/documents/:id", documentHandler.GetPublicDocument)

		protected := v1.Group("")
		protected.Use(authMiddleware)
		RegisterDocumentRoutes(protected, documentHandler)
	}
}

// RegisterDocumentRoutes 挂载需要登录的文档路由，调用方负责在 group 上设置鉴权中间件。
func RegisterDocumentRoutes(group *gin.RouterGroup, h *DocumentHandler) {
	group.GET("/documents", h.ListDocuments)
	group.POST("/documents", h.CreateDocument)
	group.GET("/trash", h.ListTrash)

	doc := group.Group("/documents/:id")
	{
		doc.GET("", h.GetDocument)
		doc.PATCH("", h.UpdateDocument)
		doc.DELETE("", h.DeleteDocument)
		doc.PATCH("/restore", h.RestoreDocument)
		doc.POST("/duplicate", h.DuplicateDocument)
		doc.POST("/thumbnail", h.UploadThumbnail)
		doc.GET("/thumbnail", h.GetThumbnailURL)

		doc.POST("/:entity/create", h.CreateEntity)
		doc.PATCH("/:entity/:entityId", h.UpdateEntity)
		doc.DELETE("/:entity/:entityId", h.DeleteEntity)
	}

	group.DELETE("/languages/:languageId", h.DeleteLanguage)
}
