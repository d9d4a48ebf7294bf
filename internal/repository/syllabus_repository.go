package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-dev/syllabus-api/internal/models"
)

const syllabusColumns = `id, subject_id, version_number, version_label, status,
       subject_code, subject_name, subject_credits, content, effective_date,
       previous_version_id, created_by, updated_by, submitted_by, submitted_at,
       hod_approved_by, hod_approved_at, aa_approved_by, aa_approved_at,
       principal_approved_by, principal_approved_at, rejection_comment,
       is_edit_enabled, is_deleted, row_version, created_at, updated_at`

// SyllabusRepository persists syllabus versions.
type SyllabusRepository struct {
	db *sqlx.DB
}

// NewSyllabusRepository constructs the repository.
func NewSyllabusRepository(db *sqlx.DB) *SyllabusRepository {
	return &SyllabusRepository{db: db}
}

// Create inserts a new syllabus version row.
func (r *SyllabusRepository) Create(ctx context.Context, syllabus *models.SyllabusVersion) error {
	if syllabus.ID == "" {
		syllabus.ID = uuid.NewString()
	}
	if syllabus.Status == "" {
		syllabus.Status = models.SyllabusStatusDraft
	}
	now := time.Now().UTC()
	if syllabus.CreatedAt.IsZero() {
		syllabus.CreatedAt = now
	}
	syllabus.UpdatedAt = now
	if syllabus.RowVersion == 0 {
		syllabus.RowVersion = 1
	}

	const query = `INSERT INTO syllabus_versions
	(id, subject_id, version_number, version_label, status, subject_code, subject_name, subject_credits,
	 content, effective_date, previous_version_id, created_by, updated_by, submitted_by, submitted_at,
	 hod_approved_by, hod_approved_at, aa_approved_by, aa_approved_at, principal_approved_by, principal_approved_at,
	 rejection_comment, is_edit_enabled, is_deleted, row_version, created_at, updated_at)
	VALUES (:id, :subject_id, :version_number, :version_label, :status, :subject_code, :subject_name, :subject_credits,
	 :content, :effective_date, :previous_version_id, :created_by, :updated_by, :submitted_by, :submitted_at,
	 :hod_approved_by, :hod_approved_at, :aa_approved_by, :aa_approved_at, :principal_approved_by, :principal_approved_at,
	 :rejection_comment, :is_edit_enabled, :is_deleted, :row_version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, syllabus); err != nil {
		return fmt.Errorf("create syllabus: %w", err)
	}
	return nil
}

// GetByID fetches a syllabus version, excluding soft-deleted rows.
func (r *SyllabusRepository) GetByID(ctx context.Context, id string) (*models.SyllabusVersion, error) {
	query := `SELECT ` + syllabusColumns + ` FROM syllabus_versions WHERE id = $1 AND is_deleted = FALSE`
	var syllabus models.SyllabusVersion
	if err := r.db.GetContext(ctx, &syllabus, query, id); err != nil {
		return nil, err
	}
	return &syllabus, nil
}

// List returns syllabus versions matching the filter with total count.
func (r *SyllabusRepository) List(ctx context.Context, filter models.SyllabusFilter) ([]models.SyllabusVersion, int, error) {
	baseQuery := `FROM syllabus_versions WHERE is_deleted = FALSE`
	var conditions []string
	var args []interface{}

	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", syllabusColumns, baseQuery, pageSize, offset)
	var syllabi []models.SyllabusVersion
	if err := r.db.SelectContext(ctx, &syllabi, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list syllabi: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count syllabi: %w", err)
	}

	return syllabi, total, nil
}

// UpdateContent mutates the editable content fields guarded by the row
// version. Snapshot fields are never touched.
func (r *SyllabusRepository) UpdateContent(ctx context.Context, syllabus *models.SyllabusVersion) error {
	expected := syllabus.RowVersion
	syllabus.UpdatedAt = time.Now().UTC()
	const query = `UPDATE syllabus_versions
	SET content = :content, effective_date = :effective_date, updated_by = :updated_by,
	    updated_at = :updated_at, row_version = row_version + 1
	WHERE id = :id AND is_deleted = FALSE AND row_version = :expected_row_version`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                   syllabus.ID,
		"content":              syllabus.Content,
		"effective_date":       syllabus.EffectiveDate,
		"updated_by":           syllabus.UpdatedBy,
		"updated_at":           syllabus.UpdatedAt,
		"expected_row_version": expected,
	})
	if err != nil {
		return fmt.Errorf("update syllabus content: %w", err)
	}
	return requireRowAffected(result, "update syllabus content")
}

// UpdateSyllabusStatusParams groups mutable columns for status transitions.
// RowVersion carries the expected value for the compare-and-swap.
type UpdateSyllabusStatusParams struct {
	ID         string
	RowVersion int
	Status     models.SyllabusStatus

	SubmittedBy         *string
	SubmittedAt         *time.Time
	HODApprovedBy       *string
	HODApprovedAt       *time.Time
	AAApprovedBy        *string
	AAApprovedAt        *time.Time
	PrincipalApprovedBy *string
	PrincipalApprovedAt *time.Time
	RejectionComment    *string

	VersionNumber *int
	VersionLabel  *string
	IsEditEnabled *bool
}

// UpdateStatus performs a compare-and-swap status transition. It returns
// sql.ErrNoRows when the row version no longer matches (lost race) or the
// row is gone.
func (r *SyllabusRepository) UpdateStatus(ctx context.Context, params UpdateSyllabusStatusParams) error {
	setParts := []string{
		"status = :status",
		"updated_at = :updated_at",
		"row_version = row_version + 1",
	}
	args := map[string]interface{}{
		"id":                   params.ID,
		"status":               params.Status,
		"updated_at":           time.Now().UTC(),
		"expected_row_version": params.RowVersion,
	}
	if params.SubmittedBy != nil {
		setParts = append(setParts, "submitted_by = :submitted_by", "submitted_at = :submitted_at")
		args["submitted_by"] = params.SubmittedBy
		args["submitted_at"] = params.SubmittedAt
	}
	if params.HODApprovedBy != nil {
		setParts = append(setParts, "hod_approved_by = :hod_approved_by", "hod_approved_at = :hod_approved_at")
		args["hod_approved_by"] = params.HODApprovedBy
		args["hod_approved_at"] = params.HODApprovedAt
	}
	if params.AAApprovedBy != nil {
		setParts = append(setParts, "aa_approved_by = :aa_approved_by", "aa_approved_at = :aa_approved_at")
		args["aa_approved_by"] = params.AAApprovedBy
		args["aa_approved_at"] = params.AAApprovedAt
	}
	if params.PrincipalApprovedBy != nil {
		setParts = append(setParts, "principal_approved_by = :principal_approved_by", "principal_approved_at = :principal_approved_at")
		args["principal_approved_by"] = params.PrincipalApprovedBy
		args["principal_approved_at"] = params.PrincipalApprovedAt
	}
	if params.RejectionComment != nil {
		setParts = append(setParts, "rejection_comment = :rejection_comment")
		args["rejection_comment"] = params.RejectionComment
	}
	if params.VersionNumber != nil {
		setParts = append(setParts, "version_number = :version_number")
		args["version_number"] = params.VersionNumber
	}
	if params.VersionLabel != nil {
		setParts = append(setParts, "version_label = :version_label")
		args["version_label"] = params.VersionLabel
	}
	if params.IsEditEnabled != nil {
		setParts = append(setParts, "is_edit_enabled = :is_edit_enabled")
		args["is_edit_enabled"] = params.IsEditEnabled
	}

	query := fmt.Sprintf(`UPDATE syllabus_versions SET %s WHERE id = :id AND is_deleted = FALSE AND row_version = :expected_row_version`,
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("update syllabus status: %w", err)
	}
	return requireRowAffected(result, "update syllabus status")
}

// SoftDelete marks a draft as deleted guarded by the row version.
func (r *SyllabusRepository) SoftDelete(ctx context.Context, id string, rowVersion int) error {
	const query = `UPDATE syllabus_versions
	SET is_deleted = TRUE, updated_at = $2, row_version = row_version + 1
	WHERE id = $1 AND is_deleted = FALSE AND row_version = $3`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC(), rowVersion)
	if err != nil {
		return fmt.Errorf("soft delete syllabus: %w", err)
	}
	return requireRowAffected(result, "soft delete syllabus")
}

func requireRowAffected(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
