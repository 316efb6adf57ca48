package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visionforge/classifier-backend/internal/http/response"
	"github.com/visionforge/classifier-backend/internal/services"
)

type VideoHandler struct {
	videos services.VideoService
}

func NewVideoHandler(videos services.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// POST /api/videos/process
func (h *VideoHandler) Process(c *gin.Context) {
	var req services.ProcessVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	result, err := h.videos.ProcessVideo(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, "process_video_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"result": result})
}
