package server

import (
	"github.com/gin-gonic/gin"

	"github.com/visionforge/classifier-backend/internal/http/handlers"
	"github.com/visionforge/classifier-backend/internal/http/middleware"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log                 *logger.Logger
	HealthHandler       *handlers.HealthHandler
	DatasetHandler      *handlers.DatasetHandler
	TrainingHandler     *handlers.TrainingHandler
	OperationHandler    *handlers.OperationHandler
	LabelFileHandler    *handlers.LabelFileHandler
	CollaboratorHandler *handlers.CollaboratorHandler
	ImageHandler        *handlers.ImageHandler
	VideoHandler        *handlers.VideoHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))
	router.Use(middleware.CORS())

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	router.GET("/check", cfg.OperationHandler.Check)
	router.GET("/labelfile", cfg.LabelFileHandler.Generate)

	api := router.Group("/api")
	{
		// Datasets
		api.GET("/datasets", cfg.DatasetHandler.ListDatasets)
		api.POST("/datasets", cfg.DatasetHandler.CreateDataset)
		api.GET("/datasets/:datasetId", cfg.DatasetHandler.GetDataset)
		api.DELETE("/datasets/:datasetId", cfg.DatasetHandler.DeleteDataset)
		api.POST("/datasets/:datasetId/labels", cfg.DatasetHandler.CreateLabel)

		// Pipeline
		api.POST("/import", cfg.TrainingHandler.ImportData)
		api.POST("/train", cfg.TrainingHandler.Train)
		api.POST("/export", cfg.TrainingHandler.Export)
		api.POST("/exportlatestmodel", cfg.TrainingHandler.ExportLatestModel)
		api.GET("/models", cfg.TrainingHandler.ListModels)

		// Collaborators
		api.POST("/datasets/:datasetId/collaborators", cfg.CollaboratorHandler.Invite)
		api.DELETE("/collaborators/:id", cfg.CollaboratorHandler.Remove)

		// Training data
		api.DELETE("/images/:id", cfg.ImageHandler.Delete)
		api.POST("/videos/process", cfg.VideoHandler.Process)
	}

	return router
}
