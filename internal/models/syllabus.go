package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SyllabusStatus captures the workflow state of a syllabus version.
type SyllabusStatus string

const (
	SyllabusStatusDraft                SyllabusStatus = "DRAFT"
	SyllabusStatusPendingHOD           SyllabusStatus = "PENDING_HOD"
	SyllabusStatusPendingAA            SyllabusStatus = "PENDING_AA"
	SyllabusStatusPendingPrincipal     SyllabusStatus = "PENDING_PRINCIPAL"
	SyllabusStatusApproved             SyllabusStatus = "APPROVED"
	SyllabusStatusPublished            SyllabusStatus = "PUBLISHED"
	SyllabusStatusRejected             SyllabusStatus = "REJECTED"
	SyllabusStatusRevisionInProgress   SyllabusStatus = "REVISION_IN_PROGRESS"
	SyllabusStatusPendingHODRevision   SyllabusStatus = "PENDING_HOD_REVISION"
	SyllabusStatusPendingAdminRepub    SyllabusStatus = "PENDING_ADMIN_REPUBLISH"
	SyllabusStatusInactive             SyllabusStatus = "INACTIVE"
	SyllabusStatusArchived             SyllabusStatus = "ARCHIVED"
)

// AllSyllabusStatuses is the closed set of valid workflow states.
var AllSyllabusStatuses = []SyllabusStatus{
	SyllabusStatusDraft,
	SyllabusStatusPendingHOD,
	SyllabusStatusPendingAA,
	SyllabusStatusPendingPrincipal,
	SyllabusStatusApproved,
	SyllabusStatusPublished,
	SyllabusStatusRejected,
	SyllabusStatusRevisionInProgress,
	SyllabusStatusPendingHODRevision,
	SyllabusStatusPendingAdminRepub,
	SyllabusStatusInactive,
	SyllabusStatusArchived,
}

// approveChain maps each pending stage to its successor. Approve advances
// exactly one hop; every other status is an invalid source.
var approveChain = map[SyllabusStatus]SyllabusStatus{
	SyllabusStatusPendingHOD:       SyllabusStatusPendingAA,
	SyllabusStatusPendingAA:        SyllabusStatusPendingPrincipal,
	SyllabusStatusPendingPrincipal: SyllabusStatusApproved,
	SyllabusStatusApproved:         SyllabusStatusPublished,
}

// NextApprovalStatus returns the successor stage for an approve call.
func NextApprovalStatus(current SyllabusStatus) (SyllabusStatus, bool) {
	next, ok := approveChain[current]
	return next, ok
}

// IsPendingStatus reports whether the status is one of the approval stages a
// rejection may target.
func IsPendingStatus(s SyllabusStatus) bool {
	switch s {
	case SyllabusStatusPendingHOD, SyllabusStatusPendingAA, SyllabusStatusPendingPrincipal, SyllabusStatusApproved:
		return true
	default:
		return false
	}
}

// IsEditableStatus reports whether content edits are allowed.
func IsEditableStatus(s SyllabusStatus) bool {
	switch s {
	case SyllabusStatusDraft, SyllabusStatusRejected, SyllabusStatusRevisionInProgress:
		return true
	default:
		return false
	}
}

// IsValidSyllabusStatus reports membership in the closed status set.
func IsValidSyllabusStatus(s SyllabusStatus) bool {
	for _, v := range AllSyllabusStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// DefaultVisibleStatuses returns the read-side status filter applied when a
// caller lists syllabi without an explicit filter. Admin sees everything
// (empty slice means unfiltered).
func DefaultVisibleStatuses(role UserRole) []SyllabusStatus {
	switch role {
	case RoleHOD:
		return []SyllabusStatus{SyllabusStatusPendingHOD, SyllabusStatusPendingHODRevision}
	case RoleAcademicAffairs:
		return []SyllabusStatus{SyllabusStatusPendingAA}
	case RolePrincipal:
		return []SyllabusStatus{SyllabusStatusPendingPrincipal, SyllabusStatusApproved}
	case RoleLecturer:
		return []SyllabusStatus{
			SyllabusStatusDraft,
			SyllabusStatusPendingHOD,
			SyllabusStatusPendingAA,
			SyllabusStatusPendingPrincipal,
			SyllabusStatusApproved,
			SyllabusStatusPublished,
			SyllabusStatusRejected,
			SyllabusStatusRevisionInProgress,
			SyllabusStatusPendingHODRevision,
		}
	case RoleStudent:
		return []SyllabusStatus{SyllabusStatusPublished}
	default:
		return nil
	}
}

// SyllabusVersion is one versioned instance of a course syllabus. Snapshot
// fields capture the subject's attributes at creation time and are never
// mutated afterwards.
type SyllabusVersion struct {
	ID            string         `db:"id" json:"id"`
	SubjectID     string         `db:"subject_id" json:"subject_id"`
	VersionNumber int            `db:"version_number" json:"version_number"`
	VersionLabel  string         `db:"version_label" json:"version_label"`
	Status        SyllabusStatus `db:"status" json:"status"`

	SubjectCode    string `db:"subject_code" json:"subject_code"`
	SubjectName    string `db:"subject_name" json:"subject_name"`
	SubjectCredits int    `db:"subject_credits" json:"subject_credits"`

	Content       []byte     `db:"content" json:"content"`
	EffectiveDate *time.Time `db:"effective_date" json:"effective_date,omitempty"`

	PreviousVersionID *string `db:"previous_version_id" json:"previous_version_id,omitempty"`

	CreatedBy            string     `db:"created_by" json:"created_by"`
	UpdatedBy            *string    `db:"updated_by" json:"updated_by,omitempty"`
	SubmittedBy          *string    `db:"submitted_by" json:"submitted_by,omitempty"`
	SubmittedAt          *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	HODApprovedBy        *string    `db:"hod_approved_by" json:"hod_approved_by,omitempty"`
	HODApprovedAt        *time.Time `db:"hod_approved_at" json:"hod_approved_at,omitempty"`
	AAApprovedBy         *string    `db:"aa_approved_by" json:"aa_approved_by,omitempty"`
	AAApprovedAt         *time.Time `db:"aa_approved_at" json:"aa_approved_at,omitempty"`
	PrincipalApprovedBy  *string    `db:"principal_approved_by" json:"principal_approved_by,omitempty"`
	PrincipalApprovedAt  *time.Time `db:"principal_approved_at" json:"principal_approved_at,omitempty"`
	RejectionComment     *string    `db:"rejection_comment" json:"rejection_comment,omitempty"`

	IsEditEnabled bool `db:"is_edit_enabled" json:"is_edit_enabled"`
	IsDeleted     bool `db:"is_deleted" json:"is_deleted"`

	// RowVersion is the optimistic-lock counter checked on every status write.
	RowVersion int `db:"row_version" json:"row_version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SyllabusFilter constrains listing queries.
type SyllabusFilter struct {
	SubjectID string
	Statuses  []SyllabusStatus
	CreatedBy string
	Page      int
	PageSize  int
}

// NextVersionLabel increments the minor component of a "vMAJOR.MINOR" label,
// rolling the major when the minor reaches 10: v2.3 -> v2.4, v2.9 -> v3.0.
func NextVersionLabel(label string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(label), "v")
	trimmed = strings.TrimPrefix(trimmed, "V")
	parts := strings.SplitN(trimmed, ".", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed version label %q", label)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("malformed version label %q", label)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed version label %q", label)
	}
	minor++
	if minor >= 10 {
		major++
		minor = 0
	}
	return fmt.Sprintf("v%d.%d", major, minor), nil
}

// NextMajorLabel renders the label of a freshly republished version: the
// version number becomes the major component and the minor resets to zero.
func NextMajorLabel(versionNumber int) string {
	return fmt.Sprintf("v%d.0", versionNumber)
}

// SyllabusComparison reports a structural diff across a fixed field set.
type SyllabusComparison struct {
	FromID string                    `json:"from_id"`
	ToID   string                    `json:"to_id"`
	Fields []SyllabusComparisonField `json:"fields"`
}

// SyllabusComparisonField holds both values and a changed flag for one field.
type SyllabusComparisonField struct {
	Name      string `json:"name"`
	FromValue string `json:"from_value"`
	ToValue   string `json:"to_value"`
	Different bool   `json:"different"`
}
