package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/visionforge/classifier-backend/internal/http/response"
	"github.com/visionforge/classifier-backend/internal/services"
)

type ImageHandler struct {
	images services.ImageService
}

func NewImageHandler(images services.ImageService) *ImageHandler {
	return &ImageHandler{images: images}
}

// DELETE /api/images/:id
func (h *ImageHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_image_id", err)
		return
	}
	if err := h.images.Delete(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, "delete_image_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id})
}
