package models

import "time"

// RevisionSessionStatus captures the state of a post-publication correction cycle.
type RevisionSessionStatus string

const (
	RevisionStatusOpen       RevisionSessionStatus = "OPEN"
	RevisionStatusInProgress RevisionSessionStatus = "IN_PROGRESS"
	RevisionStatusPendingHOD RevisionSessionStatus = "PENDING_HOD"
	RevisionStatusCompleted  RevisionSessionStatus = "COMPLETED"
	RevisionStatusCancelled  RevisionSessionStatus = "CANCELLED"
)

// IsTerminalRevisionStatus reports whether a session can no longer advance.
func IsTerminalRevisionStatus(s RevisionSessionStatus) bool {
	return s == RevisionStatusCompleted || s == RevisionStatusCancelled
}

// RevisionSession is one correction cycle against a published syllabus
// version. At most one non-terminal session may exist per syllabus.
type RevisionSession struct {
	ID            string                `db:"id" json:"id"`
	SyllabusID    string                `db:"syllabus_id" json:"syllabus_id"`
	SessionNumber int                   `db:"session_number" json:"session_number"`
	Status        RevisionSessionStatus `db:"status" json:"status"`
	Description   string                `db:"description" json:"description"`

	InitiatedBy string    `db:"initiated_by" json:"initiated_by"`
	InitiatedAt time.Time `db:"initiated_at" json:"initiated_at"`

	AssignedLecturer string `db:"assigned_lecturer" json:"assigned_lecturer"`

	HODDecision   *string    `db:"hod_decision" json:"hod_decision,omitempty"`
	HODComment    *string    `db:"hod_comment" json:"hod_comment,omitempty"`
	HODReviewedBy *string    `db:"hod_reviewed_by" json:"hod_reviewed_by,omitempty"`
	HODReviewedAt *time.Time `db:"hod_reviewed_at" json:"hod_reviewed_at,omitempty"`

	RepublishedBy *string    `db:"republished_by" json:"republished_by,omitempty"`
	RepublishedAt *time.Time `db:"republished_at" json:"republished_at,omitempty"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
