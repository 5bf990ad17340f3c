package main

import (
	"fmt"
	"os"

	"github.com/playbookos/playbook-backend/internal/db"
	"github.com/playbookos/playbook-backend/internal/handlers"
	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/repos"
	"github.com/playbookos/playbook-backend/internal/server"
	"github.com/playbookos/playbook-backend/internal/services"
	"github.com/playbookos/playbook-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Database
	dbService, err := db.New(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err = dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Auto migration failed", "error", err)
	}
	gdb := dbService.DB()

	// Repos
	log.Info("Setting up repos...")
	uploadRepo := repos.NewUploadRepo(gdb, log)
	contentBlockRepo := repos.NewContentBlockRepo(gdb, log)

	// Services
	log.Info("Setting up services...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Fatal("Bucket init failed", "error", err)
	}
	sourceService := services.NewSourceService(log, bucketService)
	extractionClient, err := services.NewExtractionClient(log, bucketService)
	if err != nil {
		log.Fatal("Extraction client init failed", "error", err)
	}
	ingestionService := services.NewIngestionService(log, gdb, sourceService, extractionClient, bucketService, uploadRepo, contentBlockRepo)
	mappingService := services.NewMappingService(log, gdb, uploadRepo, contentBlockRepo)
	detailService := services.NewDetailService(log, uploadRepo, contentBlockRepo)
	dashboardService := services.NewDashboardService(log, uploadRepo)

	// Handlers
	log.Info("Setting up handlers...")
	uploadHandler := handlers.NewUploadHandler(log, ingestionService, detailService)
	mappingHandler := handlers.NewMappingHandler(log, mappingService, detailService)
	dashboardHandler := handlers.NewDashboardHandler(log, dashboardService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		Log:              log,
		UploadHandler:    uploadHandler,
		MappingHandler:   mappingHandler,
		DashboardHandler: dashboardHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
