package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-dev/syllabus-api/internal/models"
)

const feedbackColumns = `id, syllabus_id, reported_by, type, section, title, description, status,
       admin_response, responded_by, responded_at, edit_enabled, revision_session_id,
       resolved_by, resolved_at, resolved_in_version, created_at, updated_at`

// FeedbackRepository persists reader feedback.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a new feedback row.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	if feedback.Status == "" {
		feedback.Status = models.FeedbackStatusPending
	}
	now := time.Now().UTC()
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = now
	}
	feedback.UpdatedAt = now

	const query = `INSERT INTO feedback
	(id, syllabus_id, reported_by, type, section, title, description, status, admin_response,
	 responded_by, responded_at, edit_enabled, revision_session_id,
	 resolved_by, resolved_at, resolved_in_version, created_at, updated_at)
	VALUES (:id, :syllabus_id, :reported_by, :type, :section, :title, :description, :status, :admin_response,
	 :responded_by, :responded_at, :edit_enabled, :revision_session_id,
	 :resolved_by, :resolved_at, :resolved_in_version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// GetByID fetches one feedback row.
func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*models.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE id = $1`
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, id); err != nil {
		return nil, err
	}
	return &feedback, nil
}

// GetByIDs fetches multiple feedback rows by id.
func (r *FeedbackRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Feedback, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s FROM feedback WHERE id IN (%s)", feedbackColumns, strings.Join(placeholders, ","))
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("get feedback by ids: %w", err)
	}
	return items, nil
}

// List returns feedback matching the filter with total count.
func (r *FeedbackRepository) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int, error) {
	baseQuery := `FROM feedback WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.SyllabusID != "" {
		conditions = append(conditions, fmt.Sprintf("syllabus_id = $%d", len(args)+1))
		args = append(args, filter.SyllabusID)
	}
	if filter.ReportedBy != "" {
		conditions = append(conditions, fmt.Sprintf("reported_by = $%d", len(args)+1))
		args = append(args, filter.ReportedBy)
	}
	if filter.RevisionSessionID != "" {
		conditions = append(conditions, fmt.Sprintf("revision_session_id = $%d", len(args)+1))
		args = append(args, filter.RevisionSessionID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", feedbackColumns, baseQuery, pageSize, offset)
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}
	return items, total, nil
}

// AttachToSession binds feedback rows to a revision session, moving them to
// AWAITING_REVISION with editing enabled for the assigned lecturer.
func (r *FeedbackRepository) AttachToSession(ctx context.Context, sessionID string, feedbackIDs []string) error {
	if len(feedbackIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(feedbackIDs))
	args := []interface{}{sessionID, models.FeedbackStatusAwaitingRevision, time.Now().UTC()}
	for i, id := range feedbackIDs {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`UPDATE feedback
	SET revision_session_id = $1, status = $2, edit_enabled = TRUE, updated_at = $3
	WHERE id IN (%s)`, strings.Join(placeholders, ","))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("attach feedback to session: %w", err)
	}
	return nil
}

// UpdateStatusBySession moves every feedback row of a session to the given
// status, stamping the resolution columns when a resolver is provided.
func (r *FeedbackRepository) UpdateStatusBySession(ctx context.Context, sessionID string, status models.FeedbackStatus, resolvedBy, resolvedInVersion *string) error {
	const query = `UPDATE feedback
	SET status = $2, resolved_by = $3, resolved_at = $4, resolved_in_version = $5, updated_at = $6
	WHERE revision_session_id = $1`
	now := time.Now().UTC()
	var resolvedAt *time.Time
	if resolvedBy != nil {
		resolvedAt = &now
	}
	if _, err := r.db.ExecContext(ctx, query, sessionID, status, resolvedBy, resolvedAt, resolvedInVersion, now); err != nil {
		return fmt.Errorf("update feedback by session: %w", err)
	}
	return nil
}

// Update writes the mutable columns of one feedback row.
func (r *FeedbackRepository) Update(ctx context.Context, feedback *models.Feedback) error {
	feedback.UpdatedAt = time.Now().UTC()
	const query = `UPDATE feedback
	SET status = :status, admin_response = :admin_response, responded_by = :responded_by,
	    responded_at = :responded_at, edit_enabled = :edit_enabled,
	    revision_session_id = :revision_session_id, resolved_by = :resolved_by,
	    resolved_at = :resolved_at, resolved_in_version = :resolved_in_version,
	    updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, feedback)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	return requireRowAffected(result, "update feedback")
}
