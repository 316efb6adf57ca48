package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/visionforge/classifier-backend/internal/http/response"
	"github.com/visionforge/classifier-backend/internal/services"
)

type DatasetHandler struct {
	datasets services.DatasetService
}

func NewDatasetHandler(datasets services.DatasetService) *DatasetHandler {
	return &DatasetHandler{datasets: datasets}
}

// GET /api/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	datasets, err := h.datasets.List(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, "list_datasets_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"datasets": datasets})
}

// POST /api/datasets
func (h *DatasetHandler) CreateDataset(c *gin.Context) {
	var req services.CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	ds, err := h.datasets.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, "create_dataset_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"dataset": ds})
}

// GET /api/datasets/:datasetId
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	key, err := uuid.Parse(c.Param("datasetId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_dataset_id", err)
		return
	}
	ds, err := h.datasets.Get(c.Request.Context(), key)
	if err != nil {
		response.RespondServiceError(c, "dataset_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"dataset": ds})
}

// POST /api/datasets/:datasetId/labels
func (h *DatasetHandler) CreateLabel(c *gin.Context) {
	key, err := uuid.Parse(c.Param("datasetId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_dataset_id", err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	label, err := h.datasets.CreateLabel(c.Request.Context(), key, req.Name)
	if err != nil {
		response.RespondServiceError(c, "create_label_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"label": label})
}

// DELETE /api/datasets/:datasetId
func (h *DatasetHandler) DeleteDataset(c *gin.Context) {
	key, err := uuid.Parse(c.Param("datasetId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_dataset_id", err)
		return
	}
	if err := h.datasets.Delete(c.Request.Context(), key); err != nil {
		response.RespondServiceError(c, "delete_dataset_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": key})
}
