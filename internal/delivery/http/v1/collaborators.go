package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskshare/taskshare/internal/services"
)

type addCollaboratorRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Permission string `json:"permission" binding:"required"`
}

func (h *handlerImpl) HandleAddCollaborator(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	taskID := c.Param("id")
	if taskID == "" {
		h.logger.Error().Msg("no task id provided")
		abort(c, newBadRequestError("no task id provided"))
		return
	}

	var req addCollaboratorRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError("invalid request body"))
		return
	}

	view, err := h.tasks.AddCollaborator(c, services.AddCollaboratorParams{
		Actor:      actor,
		TaskID:     taskID,
		Email:      req.Email,
		Permission: req.Permission,
	})
	if err != nil {
		abortServiceError(c, err)
		return
	}

	h.logger.Info().Msg("added collaborator")
	c.JSON(http.StatusCreated, view)
}

func (h *handlerImpl) HandleRemoveCollaborator(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	taskID := c.Param("id")
	userID := c.Param("userId")
	if taskID == "" || userID == "" {
		h.logger.Error().Msg("no task or user id provided")
		abort(c, newBadRequestError("no task or user id provided"))
		return
	}

	err := h.tasks.RemoveCollaborator(c, actor, taskID, userID)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	h.logger.Info().Msg("removed collaborator")
	c.Status(http.StatusNoContent)
}
