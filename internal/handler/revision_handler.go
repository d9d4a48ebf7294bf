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

type revisionService interface {
	Start(ctx context.Context, req dto.StartRevisionRequest, actor *models.JWTClaims) (*models.RevisionSession, error)
	Submit(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.RevisionSession, error)
	Review(ctx context.Context, sessionID string, req dto.ReviewRevisionRequest, actor *models.JWTClaims) (*models.RevisionSession, error)
	Republish(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.RevisionSession, error)
	Cancel(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.RevisionSession, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RevisionSession, error)
	ListBySyllabus(ctx context.Context, syllabusID string, actor *models.JWTClaims) ([]models.RevisionSession, error)
	ListHistory(ctx context.Context, syllabusID string, actor *models.JWTClaims) ([]models.SyllabusHistory, error)
}

// RevisionHandler exposes REST endpoints for post-publication correction cycles.
type RevisionHandler struct {
	service revisionService
}

// NewRevisionHandler constructs the handler.
func NewRevisionHandler(service revisionService) *RevisionHandler {
	return &RevisionHandler{service: service}
}

// Start godoc
// @Summary Open a revision session for a published syllabus
// @Tags Revisions
// @Accept json
// @Produce json
// @Param payload body dto.StartRevisionRequest true "Revision payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /revisions [post]
func (h *RevisionHandler) Start(c *gin.Context) {
	var req dto.StartRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid revision payload"))
		return
	}
	session, err := h.service.Start(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Submit godoc
// @Summary Submit revised content for department review
// @Tags Revisions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /revisions/{id}/submit [post]
func (h *RevisionHandler) Submit(c *gin.Context) {
	session, err := h.service.Submit(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Review godoc
// @Summary Approve or reject a submitted revision
// @Tags Revisions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.ReviewRevisionRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /revisions/{id}/review [post]
func (h *RevisionHandler) Review(c *gin.Context) {
	var req dto.ReviewRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	session, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Republish godoc
// @Summary Republish the syllabus as the next major version
// @Tags Revisions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /revisions/{id}/republish [post]
func (h *RevisionHandler) Republish(c *gin.Context) {
	session, err := h.service.Republish(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Cancel godoc
// @Summary Cancel an active revision session
// @Tags Revisions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /revisions/{id}/cancel [post]
func (h *RevisionHandler) Cancel(c *gin.Context) {
	session, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Get godoc
// @Summary Fetch a revision session
// @Tags Revisions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /revisions/{id} [get]
func (h *RevisionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// ListBySyllabus godoc
// @Summary List revision sessions for a syllabus
// @Tags Revisions
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/revisions [get]
func (h *RevisionHandler) ListBySyllabus(c *gin.Context) {
	sessions, err := h.service.ListBySyllabus(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// ListHistory godoc
// @Summary List content snapshots for a syllabus
// @Tags Revisions
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/history [get]
func (h *RevisionHandler) ListHistory(c *gin.Context) {
	entries, err := h.service.ListHistory(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
