package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-dev/syllabus-api/internal/dto"
	"github.com/campus-dev/syllabus-api/internal/models"
	"github.com/campus-dev/syllabus-api/pkg/config"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
	"github.com/campus-dev/syllabus-api/pkg/jobs"
)

type taskStore interface {
	Create(ctx context.Context, task *models.AITask) error
	GetByID(ctx context.Context, id string) (*models.AITask, error)
	UpdateStatus(ctx context.Context, task *models.AITask) error
}

type taskStatusCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TaskRunner executes one analysis task and returns its result document.
type TaskRunner interface {
	Run(ctx context.Context, task *models.AITask) ([]byte, error)
}

// TaskRunnerFunc allows using plain functions.
type TaskRunnerFunc func(ctx context.Context, task *models.AITask) ([]byte, error)

// Run implements TaskRunner.
func (f TaskRunnerFunc) Run(ctx context.Context, task *models.AITask) ([]byte, error) {
	return f(ctx, task)
}

// TaskService dispatches analysis tasks onto a worker pool. The database row
// is authoritative; status is mirrored into the cache for cheap polling.
type TaskService struct {
	repo      taskStore
	cache     taskStatusCache
	runners   map[models.AITaskKind]TaskRunner
	queue     *jobs.Queue
	statusTTL time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTaskService constructs the service and its dispatch queue.
func NewTaskService(repo taskStore, cache taskStatusCache, runners map[models.AITaskKind]TaskRunner, validate *validator.Validate, logger *zap.Logger, cfg config.TasksConfig) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if runners == nil {
		runners = make(map[models.AITaskKind]TaskRunner)
	}
	svc := &TaskService{
		repo:      repo,
		cache:     cache,
		runners:   runners,
		statusTTL: cfg.StatusTTL,
		validator: validate,
		logger:    logger,
	}
	if svc.statusTTL <= 0 {
		svc.statusTTL = time.Hour
	}
	svc.queue = jobs.NewQueue("ai-tasks", svc.execute, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return svc
}

// Start launches the task workers.
func (s *TaskService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the task workers.
func (s *TaskService) Stop() {
	s.queue.Stop()
}

// Dispatch validates and queues a task, returning the queued record.
func (s *TaskService) Dispatch(ctx context.Context, req dto.DispatchTaskRequest, actor *models.JWTClaims) (*models.AITask, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleLecturer {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	if _, ok := s.runners[req.Kind]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported task kind: %s", req.Kind))
	}
	if !json.Valid(req.Payload) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload must be valid JSON")
	}

	task := &models.AITask{
		Kind:        req.Kind,
		Payload:     append([]byte(nil), req.Payload...),
		Status:      models.AITaskStatusQueued,
		RequestedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	s.mirror(ctx, task)

	if err := s.queue.Enqueue(jobs.Job{ID: task.ID, Type: string(task.Kind), Payload: task.ID}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue task")
	}
	return task, nil
}

// Status returns the polling view of a task, served from the cache mirror
// when fresh.
func (s *TaskService) Status(ctx context.Context, id string, actor *models.JWTClaims) (*dto.TaskStatusResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.cache != nil {
		var cached dto.TaskStatusResponse
		if err := s.cache.Get(ctx, taskCacheKey(id), &cached); err == nil && cached.ID != "" {
			return &cached, nil
		}
	}
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if actor.Role != models.RoleAdmin && task.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return statusView(task), nil
}

func (s *TaskService) execute(ctx context.Context, job jobs.Job) error {
	taskID, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("unexpected task job payload", zap.String("job_id", job.ID))
		return nil
	}
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	runner, ok := s.runners[task.Kind]
	if !ok {
		s.failTask(ctx, task, fmt.Sprintf("no runner for kind %s", task.Kind))
		return nil
	}

	now := time.Now().UTC()
	task.Status = models.AITaskStatusRunning
	task.StartedAt = &now
	if err := s.repo.UpdateStatus(ctx, task); err != nil {
		return fmt.Errorf("mark task running: %w", err)
	}
	s.mirror(ctx, task)

	result, runErr := runner.Run(ctx, task)
	finished := time.Now().UTC()
	task.FinishedAt = &finished
	if runErr != nil {
		s.failTask(ctx, task, runErr.Error())
		return nil
	}
	task.Status = models.AITaskStatusSucceeded
	task.Result = result
	if err := s.repo.UpdateStatus(ctx, task); err != nil {
		return fmt.Errorf("mark task succeeded: %w", err)
	}
	s.mirror(ctx, task)
	return nil
}

func (s *TaskService) failTask(ctx context.Context, task *models.AITask, reason string) {
	task.Status = models.AITaskStatusFailed
	task.ErrorText = &reason
	if task.FinishedAt == nil {
		now := time.Now().UTC()
		task.FinishedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, task); err != nil {
		s.logger.Error("failed to mark task as failed", zap.String("task_id", task.ID), zap.Error(err))
	}
	s.mirror(ctx, task)
}

func (s *TaskService) mirror(ctx context.Context, task *models.AITask) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, taskCacheKey(task.ID), statusView(task), s.statusTTL); err != nil {
		s.logger.Warn("failed to mirror task status", zap.String("task_id", task.ID), zap.Error(err))
	}
}

func statusView(task *models.AITask) *dto.TaskStatusResponse {
	view := &dto.TaskStatusResponse{
		ID:     task.ID,
		Kind:   task.Kind,
		Status: task.Status,
		Result: task.Result,
	}
	if task.ErrorText != nil {
		view.ErrorText = *task.ErrorText
	}
	return view
}

func taskCacheKey(id string) string {
	return "task:" + id
}
