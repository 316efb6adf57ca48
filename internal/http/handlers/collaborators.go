package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/visionforge/classifier-backend/internal/http/response"
	"github.com/visionforge/classifier-backend/internal/services"
)

type CollaboratorHandler struct {
	collaborators services.CollaboratorService
}

func NewCollaboratorHandler(collaborators services.CollaboratorService) *CollaboratorHandler {
	return &CollaboratorHandler{collaborators: collaborators}
}

// POST /api/datasets/:datasetId/collaborators
func (h *CollaboratorHandler) Invite(c *gin.Context) {
	key, err := uuid.Parse(c.Param("datasetId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_dataset_id", err)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	collaborator, err := h.collaborators.Invite(c.Request.Context(), key, req.Email)
	if err != nil {
		response.RespondServiceError(c, "invite_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"collaborator": collaborator})
}

// DELETE /api/collaborators/:id
func (h *CollaboratorHandler) Remove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_collaborator_id", err)
		return
	}
	if err := h.collaborators.Remove(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, "remove_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id})
}
