package dto

import "github.com/campus-dev/syllabus-api/internal/models"

// CreateFeedbackRequest payload for a student reporting an issue.
type CreateFeedbackRequest struct {
	SyllabusID  string                 `json:"syllabusId" validate:"required"`
	Type        models.FeedbackType    `json:"type" validate:"required"`
	Section     models.FeedbackSection `json:"section" validate:"required"`
	Title       string                 `json:"title" validate:"required"`
	Description string                 `json:"description" validate:"required"`
}

// RespondFeedbackRequest captures the admin triage decision.
type RespondFeedbackRequest struct {
	Accept   bool   `json:"accept"`
	Response string `json:"response" validate:"required"`
}

// FeedbackQuery mirrors supported listing filters.
type FeedbackQuery struct {
	SyllabusID string
	Statuses   []models.FeedbackStatus
	Type       models.FeedbackType
	Page       int
	PageSize   int
}
