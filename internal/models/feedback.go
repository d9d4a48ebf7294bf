package models

import "time"

// FeedbackType categorises a student report.
type FeedbackType string

const (
	FeedbackTypeError      FeedbackType = "ERROR"
	FeedbackTypeSuggestion FeedbackType = "SUGGESTION"
	FeedbackTypeQuestion   FeedbackType = "QUESTION"
	FeedbackTypeOther      FeedbackType = "OTHER"
)

// FeedbackSection names the part of the syllabus the report concerns.
type FeedbackSection string

const (
	FeedbackSectionGeneralInfo FeedbackSection = "GENERAL_INFO"
	FeedbackSectionObjectives  FeedbackSection = "OBJECTIVES"
	FeedbackSectionOutcomes    FeedbackSection = "OUTCOMES"
	FeedbackSectionContent     FeedbackSection = "CONTENT"
	FeedbackSectionAssessment  FeedbackSection = "ASSESSMENT"
	FeedbackSectionMaterials   FeedbackSection = "MATERIALS"
	FeedbackSectionOther       FeedbackSection = "OTHER"
)

// FeedbackStatus is the single status enum shared by feedback rows and the
// revision workflow that consumes them.
type FeedbackStatus string

const (
	FeedbackStatusPending          FeedbackStatus = "PENDING"
	FeedbackStatusAwaitingRevision FeedbackStatus = "AWAITING_REVISION"
	FeedbackStatusInRevision       FeedbackStatus = "IN_REVISION"
	FeedbackStatusResolved         FeedbackStatus = "RESOLVED"
	FeedbackStatusRejected         FeedbackStatus = "REJECTED"
)

// Feedback is a single issue raised against a syllabus version and section.
// Rows are never deleted.
type Feedback struct {
	ID         string          `db:"id" json:"id"`
	SyllabusID string          `db:"syllabus_id" json:"syllabus_id"`
	ReportedBy string          `db:"reported_by" json:"reported_by"`
	Type       FeedbackType    `db:"type" json:"type"`
	Section    FeedbackSection `db:"section" json:"section"`
	Title      string          `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Status     FeedbackStatus  `db:"status" json:"status"`

	AdminResponse  *string    `db:"admin_response" json:"admin_response,omitempty"`
	RespondedBy    *string    `db:"responded_by" json:"responded_by,omitempty"`
	RespondedAt    *time.Time `db:"responded_at" json:"responded_at,omitempty"`

	EditEnabled bool `db:"edit_enabled" json:"edit_enabled"`

	ResolvedBy        *string    `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedInVersion *string    `db:"resolved_in_version" json:"resolved_in_version,omitempty"`

	RevisionSessionID *string `db:"revision_session_id" json:"revision_session_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FeedbackFilter constrains listing queries.
type FeedbackFilter struct {
	SyllabusID        string
	ReportedBy        string
	RevisionSessionID string
	Statuses          []FeedbackStatus
	Type              FeedbackType
	Page              int
	PageSize          int
}
