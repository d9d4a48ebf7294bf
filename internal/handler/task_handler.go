package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-dev/syllabus-api/internal/dto"
	"github.com/campus-dev/syllabus-api/internal/models"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
	"github.com/campus-dev/syllabus-api/pkg/response"
)

type taskService interface {
	Dispatch(ctx context.Context, req dto.DispatchTaskRequest, actor *models.JWTClaims) (*models.AITask, error)
	Status(ctx context.Context, id string, actor *models.JWTClaims) (*dto.TaskStatusResponse, error)
}

// TaskHandler exposes background AI task dispatch and polling.
type TaskHandler struct {
	service taskService
}

// NewTaskHandler constructs the handler.
func NewTaskHandler(service taskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// Dispatch godoc
// @Summary Queue a background AI task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param payload body dto.DispatchTaskRequest true "Task payload"
// @Success 202 {object} response.Envelope
// @Router /tasks [post]
func (h *TaskHandler) Dispatch(c *gin.Context) {
	var req dto.DispatchTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid task payload"))
		return
	}
	task, err := h.service.Dispatch(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, task, nil)
}

// Status godoc
// @Summary Poll a dispatched task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id} [get]
func (h *TaskHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
