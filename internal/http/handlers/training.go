package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/visionforge/classifier-backend/internal/data/repos"
	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/http/response"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/platform/automl"
	"github.com/visionforge/classifier-backend/internal/services"
)

type TrainingHandler struct {
	training services.TrainingService
	gateway  automl.Client
	ops      repos.OperationRepo
}

func NewTrainingHandler(training services.TrainingService, gateway automl.Client, ops repos.OperationRepo) *TrainingHandler {
	return &TrainingHandler{training: training, gateway: gateway, ops: ops}
}

// POST /api/import
func (h *TrainingHandler) ImportData(c *gin.Context) {
	var req struct {
		DatasetID string `json:"datasetId"`
		Name      string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	meta, err := h.training.ImportDataset(c.Request.Context(), req.DatasetID, req.Name)
	if err != nil {
		response.RespondServiceError(c, "import_failed", err)
		return
	}

	op, err := h.recordOperation(c, meta, domain.OperationImportData, req.DatasetID, 0)
	if err != nil {
		response.RespondServiceError(c, "record_operation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"operation": op})
}

// POST /api/train
func (h *TrainingHandler) Train(c *gin.Context) {
	var req struct {
		DatasetID   string `json:"datasetId"`
		TrainBudget int    `json:"trainBudget"`
		ModelType   string `json:"modelType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	meta, err := h.training.StartTraining(c.Request.Context(), req.DatasetID, req.TrainBudget, req.ModelType)
	if err != nil {
		response.RespondServiceError(c, "train_failed", err)
		return
	}

	budget := req.TrainBudget
	if budget <= 0 {
		budget = services.DefaultTrainBudget
	}
	op, err := h.recordOperation(c, meta, domain.OperationTrainModel, req.DatasetID, budget)
	if err != nil {
		response.RespondServiceError(c, "record_operation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"operation": op})
}

// POST /api/export
func (h *TrainingHandler) Export(c *gin.Context) {
	var req struct {
		ModelID string `json:"modelId"`
		GcsPath string `json:"gcsPath"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	meta, err := h.training.ExportModel(c.Request.Context(), req.ModelID, req.GcsPath)
	if err != nil {
		response.RespondServiceError(c, "export_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"operation_name": meta.Name})
}

// POST /api/exportlatestmodel
func (h *TrainingHandler) ExportLatestModel(c *gin.Context) {
	var req struct {
		DatasetID string `json:"datasetId"`
		GcsPath   string `json:"gcsPath"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	meta, err := h.training.ExportLatestModel(c.Request.Context(), req.DatasetID, req.GcsPath)
	if err != nil {
		response.RespondServiceError(c, "export_latest_failed", err)
		return
	}

	op, err := h.recordOperation(c, meta, domain.OperationExportModel, req.DatasetID, 0)
	if err != nil {
		response.RespondServiceError(c, "record_operation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"operation": op})
}

// GET /api/models
func (h *TrainingHandler) ListModels(c *gin.Context) {
	models, err := h.gateway.ListModels(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, "list_models_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"models": models})
}

func (h *TrainingHandler) recordOperation(c *gin.Context, meta *automl.OperationMetadata, opType, datasetID string, budget int) (*domain.Operation, error) {
	return h.ops.Create(dbctx.Context{Ctx: c.Request.Context()}, &domain.Operation{
		Name:           meta.Name,
		Type:           opType,
		DatasetID:      datasetID,
		TrainingBudget: budget,
		Metadata:       datatypes.JSON(meta.Metadata),
	})
}
