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

type exportService interface {
	Export(ctx context.Context, syllabusID string, req dto.ExportSyllabusRequest, actor *models.JWTClaims) (*dto.ExportSyllabusResponse, error)
	ResolveDownload(token string) (string, error)
}

// ExportHandler renders syllabi to downloadable documents.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Render a syllabus as PDF or CSV
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body dto.ExportSyllabusRequest true "Export format"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	var req dto.ExportSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export payload"))
		return
	}
	res, err := h.service.Export(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download a previously exported document
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token required"))
		return
	}
	path, err := h.service.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.File(path)
}
