package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-dev/syllabus-api/internal/models"
)

const taskColumns = `id, kind, payload, status, result, error_text, requested_by, started_at, finished_at, created_at`

// TaskRepository persists analysis task records.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a queued task.
func (r *TaskRepository) Create(ctx context.Context, task *models.AITask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = models.AITaskStatusQueued
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO ai_tasks (id, kind, payload, status, result, error_text, requested_by, started_at, finished_at, created_at)
	VALUES (:id, :kind, :payload, :status, :result, :error_text, :requested_by, :started_at, :finished_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetByID fetches one task.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.AITask, error) {
	query := `SELECT ` + taskColumns + ` FROM ai_tasks WHERE id = $1`
	var task models.AITask
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateStatus writes the task progress columns.
func (r *TaskRepository) UpdateStatus(ctx context.Context, task *models.AITask) error {
	const query = `UPDATE ai_tasks
	SET status = :status, result = :result, error_text = :error_text,
	    started_at = :started_at, finished_at = :finished_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, task)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRowAffected(result, "update task")
}
