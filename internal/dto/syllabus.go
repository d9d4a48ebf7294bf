package dto

import (
	"encoding/json"

	"github.com/campus-dev/syllabus-api/internal/models"
)

// CreateSyllabusRequest payload for creating a new draft version.
type CreateSyllabusRequest struct {
	SubjectID     string          `json:"subjectId" validate:"required"`
	Content       json.RawMessage `json:"content" validate:"required"`
	EffectiveDate string          `json:"effectiveDate"`
}

// UpdateSyllabusRequest payload for editing a draft.
type UpdateSyllabusRequest struct {
	Content       json.RawMessage `json:"content" validate:"required"`
	EffectiveDate string          `json:"effectiveDate"`
}

// RejectSyllabusRequest carries the rejection reason.
type RejectSyllabusRequest struct {
	Comment string `json:"comment" validate:"required"`
}

// SyllabusQuery mirrors supported listing filters.
type SyllabusQuery struct {
	SubjectID string
	Statuses  []models.SyllabusStatus
	Page      int
	PageSize  int
}
