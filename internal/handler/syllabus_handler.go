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

type syllabusService interface {
	Create(ctx context.Context, req dto.CreateSyllabusRequest, actor *models.JWTClaims) (*models.SyllabusVersion, error)
	Update(ctx context.Context, id string, req dto.UpdateSyllabusRequest, actor *models.JWTClaims) (*models.SyllabusVersion, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	Submit(ctx context.Context, id string, actor *models.JWTClaims) (*models.SyllabusVersion, error)
	Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.SyllabusVersion, error)
	Reject(ctx context.Context, id string, req dto.RejectSyllabusRequest, actor *models.JWTClaims) (*models.SyllabusVersion, error)
	Clone(ctx context.Context, id string, actor *models.JWTClaims) (*models.SyllabusVersion, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SyllabusVersion, error)
	List(ctx context.Context, query dto.SyllabusQuery, actor *models.JWTClaims) ([]models.SyllabusVersion, int, error)
	Compare(ctx context.Context, fromID, toID string, actor *models.JWTClaims) (*models.SyllabusComparison, error)
	ListVersionChain(ctx context.Context, id string, actor *models.JWTClaims) ([]models.SyllabusVersion, error)
}

// SyllabusHandler exposes REST endpoints for the syllabus approval workflow.
type SyllabusHandler struct {
	service syllabusService
}

// NewSyllabusHandler constructs the handler.
func NewSyllabusHandler(service syllabusService) *SyllabusHandler {
	return &SyllabusHandler{service: service}
}

// Create godoc
// @Summary Create a draft syllabus version
// @Tags Syllabi
// @Accept json
// @Produce json
// @Param payload body dto.CreateSyllabusRequest true "Syllabus payload"
// @Success 201 {object} response.Envelope
// @Router /syllabi [post]
func (h *SyllabusHandler) Create(c *gin.Context) {
	var req dto.CreateSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid syllabus payload"))
		return
	}
	syllabus, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, syllabus)
}

// List godoc
// @Summary List syllabus versions visible to the caller
// @Tags Syllabi
// @Produce json
// @Param subjectId query string false "Subject ID"
// @Param status query string false "Comma separated statuses"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /syllabi [get]
func (h *SyllabusHandler) List(c *gin.Context) {
	query := dto.SyllabusQuery{
		SubjectID: strings.TrimSpace(c.Query("subjectId")),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 20),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.SyllabusStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.SyllabusStatus(part))
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

// Get godoc
// @Summary Get one syllabus version
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id} [get]
func (h *SyllabusHandler) Get(c *gin.Context) {
	syllabus, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, syllabus, nil)
}

// Update godoc
// @Summary Edit an editable syllabus version
// @Tags Syllabi
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body dto.UpdateSyllabusRequest true "Updated content"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id} [put]
func (h *SyllabusHandler) Update(c *gin.Context) {
	var req dto.UpdateSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid syllabus payload"))
		return
	}
	syllabus, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, syllabus, nil)
}

// Delete godoc
// @Summary Soft delete a draft version
// @Tags Syllabi
// @Param id path string true "Syllabus ID"
// @Success 204
// @Router /syllabi/{id} [delete]
func (h *SyllabusHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit a draft into the approval chain
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/submit [post]
func (h *SyllabusHandler) Submit(c *gin.Context) {
	syllabus, err := h.service.Submit(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, syllabus, nil)
}

// Approve godoc
// @Summary Advance a pending version one approval stage
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/approve [post]
func (h *SyllabusHandler) Approve(c *gin.Context) {
	syllabus, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, syllabus, nil)
}

// Reject godoc
// @Summary Reject a pending version with a comment
// @Tags Syllabi
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body dto.RejectSyllabusRequest true "Rejection comment"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/reject [post]
func (h *SyllabusHandler) Reject(c *gin.Context) {
	var req dto.RejectSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection comment is required"))
		return
	}
	syllabus, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, syllabus, nil)
}

// Clone godoc
// @Summary Derive a new draft from a published version
// @Tags Syllabi
// @Produce json
// @Param id path string true "Source syllabus ID"
// @Success 201 {object} response.Envelope
// @Router /syllabi/{id}/clone [post]
func (h *SyllabusHandler) Clone(c *gin.Context) {
	clone, err := h.service.Clone(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, clone)
}

// Compare godoc
// @Summary Compare two syllabus versions field by field
// @Tags Syllabi
// @Produce json
// @Param id path string true "From syllabus ID"
// @Param to query string true "To syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/compare [get]
func (h *SyllabusHandler) Compare(c *gin.Context) {
	toID := strings.TrimSpace(c.Query("to"))
	if toID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "query parameter 'to' is required"))
		return
	}
	comparison, err := h.service.Compare(c.Request.Context(), c.Param("id"), toID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comparison, nil)
}

// VersionChain godoc
// @Summary List the ancestry chain of a version
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/versions [get]
func (h *SyllabusHandler) VersionChain(c *gin.Context) {
	chain, err := h.service.ListVersionChain(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chain, nil)
}
