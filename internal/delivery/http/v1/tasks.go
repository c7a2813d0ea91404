package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskshare/taskshare/internal/services"
)

type createTaskRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

type updateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError("invalid request body"))
		return
	}

	view, err := h.tasks.CreateTask(c, services.CreateTaskParams{
		Actor:       actor,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		abortServiceError(c, err)
		return
	}

	h.logger.Info().Msg("created task")
	c.JSON(http.StatusCreated, view)
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	views, err := h.tasks.ListTasks(c, actor.ID)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	h.logger.Info().
		Int("count", len(views)).
		Msg("fetched tasks")
	c.JSON(http.StatusOK, views)
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
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

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError("invalid request body"))
		return
	}

	view, err := h.tasks.UpdateTask(c, services.UpdateTaskParams{
		Actor:       actor,
		TaskID:      taskID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		abortServiceError(c, err)
		return
	}

	h.logger.Info().Msg("updated task")
	c.JSON(http.StatusOK, view)
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
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

	err := h.tasks.DeleteTask(c, actor, taskID)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	h.logger.Info().Msg("deleted task")
	c.Status(http.StatusNoContent)
}
