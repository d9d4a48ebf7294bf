package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-dev/syllabus-api/internal/models"
	"github.com/campus-dev/syllabus-api/pkg/config"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
	"github.com/campus-dev/syllabus-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
}

// Sender delivers a notification to an external channel (mail, push, chat).
type Sender interface {
	Send(ctx context.Context, notification *models.Notification) error
}

// LogSender is the default Sender; it only records the delivery attempt.
type LogSender struct {
	Logger *zap.Logger
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, notification *models.Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification delivered",
		zap.String("notification_id", notification.ID),
		zap.String("recipient_id", notification.RecipientID),
		zap.String("kind", string(notification.Kind)))
	return nil
}

// NotificationService persists notifications and delivers them through a
// background worker pool. The database row is the source of truth; delivery
// is best effort.
type NotificationService struct {
	repo   notificationStore
	sender Sender
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its delivery queue.
func NewNotificationService(repo notificationStore, sender Sender, logger *zap.Logger, cfg config.NotificationsConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = &LogSender{Logger: logger}
	}
	svc := &NotificationService{
		repo:   repo,
		sender: sender,
		logger: logger,
	}
	svc.queue = jobs.NewQueue("notifications", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Dispatch persists a notification per recipient and queues delivery.
// Failures are logged, never propagated: the triggering workflow must not
// fail because a notification could not be written or sent.
func (s *NotificationService) Dispatch(ctx context.Context, recipientIDs []string, kind models.NotificationKind, title, body string, payload interface{}) {
	var raw []byte
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			s.logger.Warn("failed to marshal notification payload", zap.Error(err))
		}
	}
	for _, recipientID := range recipientIDs {
		if recipientID == "" {
			continue
		}
		notification := &models.Notification{
			ID:          uuid.NewString(),
			RecipientID: recipientID,
			Kind:        kind,
			Title:       title,
			Body:        body,
			Payload:     raw,
		}
		if err := s.repo.Create(ctx, notification); err != nil {
			s.logger.Warn("failed to persist notification",
				zap.String("recipient_id", recipientID), zap.Error(err))
			continue
		}
		if err := s.queue.Enqueue(jobs.Job{
			ID:      notification.ID,
			Type:    string(kind),
			Payload: notification,
		}); err != nil {
			s.logger.Warn("failed to enqueue notification delivery",
				zap.String("notification_id", notification.ID), zap.Error(err))
		}
	}
}

// List returns the actor's notifications.
func (s *NotificationService) List(ctx context.Context, actor *models.JWTClaims, unreadOnly bool, page, pageSize int) ([]models.Notification, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	items, total, err := s.repo.List(ctx, models.NotificationFilter{
		RecipientID: actor.UserID,
		UnreadOnly:  unreadOnly,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, total, nil
}

// MarkRead marks one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every notification of the actor as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.MarkAllRead(ctx, actor.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(*models.Notification)
	if !ok {
		s.logger.Error("unexpected notification job payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.sender.Send(ctx, notification)
}
