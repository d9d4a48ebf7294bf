package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-dev/syllabus-api/internal/models"
)

// HistoryRepository persists immutable syllabus snapshots.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create inserts a snapshot row.
func (r *HistoryRepository) Create(ctx context.Context, entry *models.SyllabusHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.TakenAt.IsZero() {
		entry.TakenAt = time.Now().UTC()
	}
	const query = `INSERT INTO syllabus_history (id, syllabus_id, reason, snapshot, taken_by, taken_at)
	VALUES (:id, :syllabus_id, :reason, :snapshot, :taken_by, :taken_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create history entry: %w", err)
	}
	return nil
}

// ListBySyllabus returns snapshots of a syllabus, newest first.
func (r *HistoryRepository) ListBySyllabus(ctx context.Context, syllabusID string) ([]models.SyllabusHistory, error) {
	const query = `SELECT id, syllabus_id, reason, snapshot, taken_by, taken_at
	FROM syllabus_history WHERE syllabus_id = $1 ORDER BY taken_at DESC`
	var entries []models.SyllabusHistory
	if err := r.db.SelectContext(ctx, &entries, query, syllabusID); err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	return entries, nil
}
