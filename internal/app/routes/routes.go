package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/notespace/internal/app/controllers"
	"github.com/yigit/notespace/internal/middleware"
)

// Controllers groups the handlers mounted under /api
type Controllers struct {
	Auth         *controllers.AuthController
	Topic        *controllers.TopicController
	Upload       *controllers.UploadController
	MetaDocument *controllers.MetaDocumentController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c *Controllers, authMiddleware *middleware.AuthMiddleware, allowAnonymousUploads bool) {
	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)

		authenticated := auth.Group("")
		authenticated.Use(authMiddleware.JWTAuth())
		{
			authenticated.POST("/logout", c.Auth.Logout)
			authenticated.GET("/me", c.Auth.Me)
		}
	}

	topics := api.Group("/topics")
	{
		topics.GET("/", c.Topic.ListTopics)
		topics.POST("/", c.Topic.CreateTopic)
		topics.GET("/:id", c.Topic.GetTopic)
	}

	// Uploads accept anonymous callers only when configured to
	uploadAuth := authMiddleware.JWTAuth()
	if allowAnonymousUploads {
		uploadAuth = authMiddleware.OptionalJWTAuth()
	}

	upload := api.Group("/upload")
	{
		upload.POST("/", uploadAuth, c.Upload.Upload)
		upload.GET("/list", c.Upload.ListFiles)
		upload.GET("/files/:filename", c.Upload.ServeFile)
		upload.GET("/:id", c.Upload.GetFile)
		upload.POST("/:id/upvote", authMiddleware.JWTAuth(), c.Upload.Upvote)
	}

	metaDocuments := api.Group("/meta-documents")
	{
		metaDocuments.GET("/list", c.MetaDocument.List)
		metaDocuments.GET("/ws", c.MetaDocument.Stream)
		metaDocuments.POST("/process/topic/:id", c.MetaDocument.ProcessTopic)
		metaDocuments.POST("/process/note/:id", c.MetaDocument.ProcessNote)
		metaDocuments.GET("/topic/:id", c.MetaDocument.GetByTopic)
		metaDocuments.GET("/:id", c.MetaDocument.Get)
		metaDocuments.GET("/:id/status", c.MetaDocument.Status)
		metaDocuments.GET("/:id/download", c.MetaDocument.Download)
	}

	// Health check endpoint (public)
	router.GET("/ping", controllers.Ping)
}
