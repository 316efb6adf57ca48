package main

import (
	"context"
	"fmt"
	"os"

	"github.com/visionforge/classifier-backend/internal/data/db"
	"github.com/visionforge/classifier-backend/internal/data/repos"
	"github.com/visionforge/classifier-backend/internal/http/handlers"
	"github.com/visionforge/classifier-backend/internal/jobs/poller"
	"github.com/visionforge/classifier-backend/internal/platform/automl"
	"github.com/visionforge/classifier-backend/internal/platform/envutil"
	"github.com/visionforge/classifier-backend/internal/platform/fcm"
	"github.com/visionforge/classifier-backend/internal/platform/gcp"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
	"github.com/visionforge/classifier-backend/internal/platform/sendgrid"
	"github.com/visionforge/classifier-backend/internal/server"
	"github.com/visionforge/classifier-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.Str("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	operationRepo := repos.NewOperationRepo(thePG, log)
	datasetRepo := repos.NewDatasetRepo(thePG, log)
	labelRepo := repos.NewLabelRepo(thePG, log)
	imageRepo := repos.NewImageRepo(thePG, log)
	modelRepo := repos.NewModelRepo(thePG, log)
	collaboratorRepo := repos.NewCollaboratorRepo(thePG, log)

	// Platform clients
	log.Info("Setting up platform clients from main...")
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	automlClient, err := automl.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init AutoML client", "error", err)
		os.Exit(1)
	}
	fcmClient, err := fcm.NewFromEnv(log)
	if err != nil {
		log.Warn("Could not init FCM client, owner push disabled", "error", err)
	}
	sendgridClient, err := sendgrid.NewFromEnv(log)
	if err != nil {
		log.Warn("Could not init SendGrid client, invite mail disabled", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	trainingService := services.NewTrainingService(log, automlClient, bucketService)
	exportResolver := services.NewExportResolver(log, bucketService, modelRepo)
	notifier := services.NewFCMOwnerNotifier(log, fcmClient)
	coordinator := services.NewLifecycleCoordinator(log, operationRepo, datasetRepo, trainingService, exportResolver, bucketService, notifier)
	pollerService := services.NewPollerService(log, operationRepo, automlClient, coordinator)
	cleanupService := services.NewDatasetCleanupService(log, collaboratorRepo, labelRepo, imageRepo, modelRepo, operationRepo, bucketService)
	datasetService := services.NewDatasetService(log, datasetRepo, labelRepo, automlClient, cleanupService)
	labelFileService := services.NewLabelFileService(log, bucketService)
	videoService := services.NewVideoService(log, datasetRepo, labelRepo, imageRepo, bucketService)
	collaboratorService := services.NewCollaboratorService(log, datasetRepo, collaboratorRepo, sendgridClient)
	imageService := services.NewImageService(log, imageRepo, labelRepo, bucketService)

	// Optional in-process poll scheduler
	if poller.Enabled() {
		log.Info("Starting poll scheduler...")
		poller.NewWorker(log, pollerService).Start(context.Background())
	}

	// Router
	log.Info("Setting up Router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:                 log,
		HealthHandler:       handlers.NewHealthHandler(),
		DatasetHandler:      handlers.NewDatasetHandler(datasetService),
		TrainingHandler:     handlers.NewTrainingHandler(trainingService, automlClient, operationRepo),
		OperationHandler:    handlers.NewOperationHandler(pollerService),
		LabelFileHandler:    handlers.NewLabelFileHandler(labelFileService),
		CollaboratorHandler: handlers.NewCollaboratorHandler(collaboratorService),
		ImageHandler:        handlers.NewImageHandler(imageService),
		VideoHandler:        handlers.NewVideoHandler(videoService),
	})

	port := envutil.Str("PORT", "8080")
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
