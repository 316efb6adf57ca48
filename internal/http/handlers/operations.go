package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visionforge/classifier-backend/internal/http/response"
	"github.com/visionforge/classifier-backend/internal/services"
)

type OperationHandler struct {
	poller services.PollerService
}

func NewOperationHandler(poller services.PollerService) *OperationHandler {
	return &OperationHandler{poller: poller}
}

// GET /check?type=IMPORT_DATA|TRAIN_MODEL|EXPORT_MODEL
//
// The external poll trigger: a missing type is a routing mistake (404), an
// unknown one a caller mistake (400).
func (h *OperationHandler) Check(c *gin.Context) {
	kind := c.Query("type")
	if kind == "" {
		response.RespondError(c, http.StatusNotFound, "missing_type", fmt.Errorf("query parameter type required"))
		return
	}

	refreshed, err := h.poller.Poll(c.Request.Context(), kind)
	if err != nil {
		response.RespondServiceError(c, "poll_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"type": kind, "refreshed": refreshed})
}
