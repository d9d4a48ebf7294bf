package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-dev/syllabus-api/internal/dto"
	"github.com/campus-dev/syllabus-api/internal/models"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
)

type feedbackStore interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	GetByID(ctx context.Context, id string) (*models.Feedback, error)
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int, error)
	Update(ctx context.Context, feedback *models.Feedback) error
}

// FeedbackService handles reader reports against published syllabi.
type FeedbackService struct {
	repo      feedbackStore
	syllabi   syllabusStore
	audit     auditLogger
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// FeedbackServiceOption configures the service.
type FeedbackServiceOption func(*FeedbackService)

// WithFeedbackNotifier wires the notification dispatcher.
func WithFeedbackNotifier(n Notifier) FeedbackServiceOption {
	return func(s *FeedbackService) { s.notifier = n }
}

// NewFeedbackService constructs the service.
func NewFeedbackService(repo feedbackStore, syllabi syllabusStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...FeedbackServiceOption) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &FeedbackService{
		repo:      repo,
		syllabi:   syllabi,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create records a new report against a published syllabus.
func (s *FeedbackService) Create(ctx context.Context, req dto.CreateFeedbackRequest, actor *models.JWTClaims) (*models.Feedback, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	syllabus, err := s.syllabi.GetByID(ctx, req.SyllabusID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}
	if syllabus.Status != models.SyllabusStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "feedback can only target a published syllabus")
	}

	feedback := &models.Feedback{
		SyllabusID:  syllabus.ID,
		ReportedBy:  actor.UserID,
		Type:        req.Type,
		Section:     req.Section,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.FeedbackStatusPending,
	}
	if err := s.repo.Create(ctx, feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create feedback")
	}
	return feedback, nil
}

// Respond records the admin triage decision on a pending report. Accepting
// moves it to the awaiting pool a future revision session draws from.
func (s *FeedbackService) Respond(ctx context.Context, id string, req dto.RespondFeedbackRequest, actor *models.JWTClaims) (*models.Feedback, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "response text is required")
	}
	feedback, err := s.loadFeedback(ctx, id)
	if err != nil {
		return nil, err
	}
	if feedback.Status != models.FeedbackStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("feedback in status %s was already triaged", feedback.Status))
	}

	now := time.Now().UTC()
	response := req.Response
	feedback.AdminResponse = &response
	feedback.RespondedBy = &actor.UserID
	feedback.RespondedAt = &now
	if req.Accept {
		feedback.Status = models.FeedbackStatusAwaitingRevision
	} else {
		feedback.Status = models.FeedbackStatusRejected
	}
	if err := s.repo.Update(ctx, feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update feedback")
	}

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionFeedbackRespond,
			Resource:   "feedback",
			ResourceID: &feedback.ID,
			NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, feedback.Status)),
		}); err != nil {
			s.logger.Warn("failed to write audit log", zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.Dispatch(ctx, []string{feedback.ReportedBy}, models.NotificationKindFeedbackResponse,
			"Response to your feedback",
			response, feedback)
	}
	return feedback, nil
}

// Get fetches one report, visible to staff and the reporter.
func (s *FeedbackService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Feedback, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	feedback, err := s.loadFeedback(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(feedback, actor) {
		return nil, appErrors.ErrForbidden
	}
	return feedback, nil
}

// List returns reports visible to the actor. Students only see their own.
func (s *FeedbackService) List(ctx context.Context, query dto.FeedbackQuery, actor *models.JWTClaims) ([]models.Feedback, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	filter := models.FeedbackFilter{
		SyllabusID: query.SyllabusID,
		Statuses:   query.Statuses,
		Type:       query.Type,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleHOD, models.RoleAcademicAffairs, models.RolePrincipal:
		// staff see everything
	case models.RoleLecturer:
		if query.SyllabusID == "" {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, "syllabusId filter is required")
		}
		syllabus, err := s.syllabi.GetByID(ctx, query.SyllabusID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
			}
			return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
		}
		if syllabus.CreatedBy != actor.UserID {
			return nil, 0, appErrors.ErrForbidden
		}
	default:
		filter.ReportedBy = actor.UserID
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}
	return items, total, nil
}

func (s *FeedbackService) loadFeedback(ctx context.Context, id string) (*models.Feedback, error) {
	feedback, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	return feedback, nil
}

func (s *FeedbackService) canRead(feedback *models.Feedback, actor *models.JWTClaims) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleHOD, models.RoleAcademicAffairs, models.RolePrincipal:
		return true
	}
	return feedback.ReportedBy == actor.UserID
}
