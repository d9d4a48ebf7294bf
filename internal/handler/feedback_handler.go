package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campus-dev/syllabus-api/internal/dto"
	"github.com/campus-dev/syllabus-api/internal/models"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
	"github.com/campus-dev/syllabus-api/pkg/response"
)

type feedbackService interface {
	Create(ctx context.Context, req dto.CreateFeedbackRequest, actor *models.JWTClaims) (*models.Feedback, error)
	Respond(ctx context.Context, id string, req dto.RespondFeedbackRequest, actor *models.JWTClaims) (*models.Feedback, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Feedback, error)
	List(ctx context.Context, query dto.FeedbackQuery, actor *models.JWTClaims) ([]models.Feedback, int, error)
}

// FeedbackHandler exposes REST endpoints for student feedback on published syllabi.
type FeedbackHandler struct {
	service feedbackService
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(service feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// Create godoc
// @Summary Report an issue on a published syllabus
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body dto.CreateFeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Router /feedback [post]
func (h *FeedbackHandler) Create(c *gin.Context) {
	var req dto.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid feedback payload"))
		return
	}
	feedback, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feedback)
}

// Respond godoc
// @Summary Accept or reject a feedback report
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Feedback ID"
// @Param payload body dto.RespondFeedbackRequest true "Triage decision"
// @Success 200 {object} response.Envelope
// @Router /feedback/{id}/respond [post]
func (h *FeedbackHandler) Respond(c *gin.Context) {
	var req dto.RespondFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid response payload"))
		return
	}
	feedback, err := h.service.Respond(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}

// Get godoc
// @Summary Fetch a feedback report
// @Tags Feedback
// @Produce json
// @Param id path string true "Feedback ID"
// @Success 200 {object} response.Envelope
// @Router /feedback/{id} [get]
func (h *FeedbackHandler) Get(c *gin.Context) {
	feedback, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}

// List godoc
// @Summary List feedback reports visible to the caller
// @Tags Feedback
// @Produce json
// @Param syllabusId query string false "Syllabus ID"
// @Param status query string false "Comma separated statuses"
// @Param type query string false "Feedback type"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /feedback [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	query := dto.FeedbackQuery{
		SyllabusID: strings.TrimSpace(c.Query("syllabusId")),
		Type:       models.FeedbackType(strings.ToUpper(strings.TrimSpace(c.Query("type")))),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "pageSize", 20),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.FeedbackStatus, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.ToUpper(strings.TrimSpace(part))
			if trimmed == "" {
				continue
			}
			statuses = append(statuses, models.FeedbackStatus(trimmed))
		}
		query.Statuses = statuses
	}

	items, total, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &models.Pagination{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	})
}
