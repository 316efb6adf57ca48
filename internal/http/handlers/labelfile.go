package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visionforge/classifier-backend/internal/http/response"
	"github.com/visionforge/classifier-backend/internal/services"
)

type LabelFileHandler struct {
	labelFiles services.LabelFileService
}

func NewLabelFileHandler(labelFiles services.LabelFileService) *LabelFileHandler {
	return &LabelFileHandler{labelFiles: labelFiles}
}

// GET /labelfile?dataset=...
func (h *LabelFileHandler) Generate(c *gin.Context) {
	dataset := c.Query("dataset")
	if dataset == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_dataset", fmt.Errorf("query parameter dataset required"))
		return
	}

	key, err := h.labelFiles.Generate(c.Request.Context(), dataset)
	if err != nil {
		response.RespondServiceError(c, "labelfile_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"dataset": dataset, "file": key})
}
