package dto

// StartRevisionRequest opens a correction cycle against a published syllabus.
type StartRevisionRequest struct {
	SyllabusID  string   `json:"syllabusId" validate:"required"`
	FeedbackIDs []string `json:"feedbackIds" validate:"required,min=1"`
	Description string   `json:"description" validate:"required"`
}

// ReviewRevisionRequest captures the HOD decision on a submitted revision.
type ReviewRevisionRequest struct {
	Decision string `json:"decision" validate:"required"`
	Comment  string `json:"comment"`
}
