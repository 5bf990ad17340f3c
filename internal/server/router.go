package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/playbookos/playbook-backend/internal/handlers"
	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/middleware"
	"github.com/playbookos/playbook-backend/internal/utils"
)

type RouterConfig struct {
	Log              *logger.Logger
	UploadHandler    *handlers.UploadHandler
	MappingHandler   *handlers.MappingHandler
	DashboardHandler *handlers.DashboardHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))

	origins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", cfg.Log)
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(origins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/upload/file", cfg.UploadHandler.UploadFile)
		api.POST("/upload/url", cfg.UploadHandler.ImportURL)
		api.GET("/upload/:id/status", cfg.UploadHandler.GetStatus)
		api.POST("/upload/:id/approve-mapping", cfg.MappingHandler.ApproveMapping)
		api.DELETE("/upload/:id", cfg.UploadHandler.DeleteUpload)
		api.GET("/uploads", cfg.UploadHandler.ListUploads)

		api.GET("/playbook/:id/blocks", cfg.MappingHandler.GetBlocks)

		api.GET("/dashboard/stats", cfg.DashboardHandler.GetStats)
		api.GET("/dashboard/recent", cfg.DashboardHandler.GetRecent)
	}

	return router
}
