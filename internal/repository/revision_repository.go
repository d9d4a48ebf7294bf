package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-dev/syllabus-api/internal/models"
)

const revisionColumns = `id, syllabus_id, session_number, status, description,
       initiated_by, initiated_at, assigned_lecturer, hod_decision, hod_comment,
       hod_reviewed_by, hod_reviewed_at, republished_by, republished_at,
       completed_at, created_at, updated_at`

// RevisionRepository persists revision sessions.
type RevisionRepository struct {
	db *sqlx.DB
}

// NewRevisionRepository constructs the repository.
func NewRevisionRepository(db *sqlx.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

// Create inserts a new revision session.
func (r *RevisionRepository) Create(ctx context.Context, session *models.RevisionSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO revision_sessions
	(id, syllabus_id, session_number, status, description, initiated_by, initiated_at,
	 assigned_lecturer, hod_decision, hod_comment, hod_reviewed_by, hod_reviewed_at,
	 republished_by, republished_at, completed_at, created_at, updated_at)
	VALUES (:id, :syllabus_id, :session_number, :status, :description, :initiated_by, :initiated_at,
	 :assigned_lecturer, :hod_decision, :hod_comment, :hod_reviewed_by, :hod_reviewed_at,
	 :republished_by, :republished_at, :completed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create revision session: %w", err)
	}
	return nil
}

// GetByID fetches a revision session.
func (r *RevisionRepository) GetByID(ctx context.Context, id string) (*models.RevisionSession, error) {
	query := `SELECT ` + revisionColumns + ` FROM revision_sessions WHERE id = $1`
	var session models.RevisionSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListBySyllabus returns all sessions of a syllabus, newest first.
func (r *RevisionRepository) ListBySyllabus(ctx context.Context, syllabusID string) ([]models.RevisionSession, error) {
	query := `SELECT ` + revisionColumns + ` FROM revision_sessions WHERE syllabus_id = $1 ORDER BY session_number DESC`
	var sessions []models.RevisionSession
	if err := r.db.SelectContext(ctx, &sessions, query, syllabusID); err != nil {
		return nil, fmt.Errorf("list revision sessions: %w", err)
	}
	return sessions, nil
}

// CountBySyllabus returns how many sessions a syllabus has had, active or not.
func (r *RevisionRepository) CountBySyllabus(ctx context.Context, syllabusID string) (int, error) {
	const query = `SELECT COUNT(*) FROM revision_sessions WHERE syllabus_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, syllabusID); err != nil {
		return 0, fmt.Errorf("count revision sessions: %w", err)
	}
	return count, nil
}

// FindActiveBySyllabus returns the non-terminal session of a syllabus, or
// sql.ErrNoRows when none is active.
func (r *RevisionRepository) FindActiveBySyllabus(ctx context.Context, syllabusID string) (*models.RevisionSession, error) {
	query := `SELECT ` + revisionColumns + ` FROM revision_sessions
	WHERE syllabus_id = $1 AND status NOT IN ($2, $3)
	ORDER BY session_number DESC LIMIT 1`
	var session models.RevisionSession
	err := r.db.GetContext(ctx, &session, query, syllabusID,
		models.RevisionStatusCompleted, models.RevisionStatusCancelled)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// HasActiveSession reports whether a syllabus has a non-terminal session.
func (r *RevisionRepository) HasActiveSession(ctx context.Context, syllabusID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM revision_sessions
	WHERE syllabus_id = $1 AND status NOT IN ($2, $3)`
	var count int
	err := r.db.GetContext(ctx, &count, query, syllabusID,
		models.RevisionStatusCompleted, models.RevisionStatusCancelled)
	if err != nil {
		return false, fmt.Errorf("count active revision sessions: %w", err)
	}
	return count > 0, nil
}

// Update writes the mutable columns of a session.
func (r *RevisionRepository) Update(ctx context.Context, session *models.RevisionSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE revision_sessions
	SET status = :status, hod_decision = :hod_decision, hod_comment = :hod_comment,
	    hod_reviewed_by = :hod_reviewed_by, hod_reviewed_at = :hod_reviewed_at,
	    republished_by = :republished_by, republished_at = :republished_at,
	    completed_at = :completed_at, updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("update revision session: %w", err)
	}
	return requireRowAffected(result, "update revision session")
}
