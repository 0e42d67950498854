package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yigit/notespace/docs"
)

// SetupSwagger mounts the API browser under /swagger. host overrides the
// generated default so "try it out" targets the running server.
func SetupSwagger(router *gin.Engine, host string) {
	if host != "" {
		docs.SwaggerInfo.Host = host
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/swagger/doc.json"),
		ginSwagger.DocExpansion("list"),
		ginSwagger.DefaultModelsExpandDepth(1)))
}
