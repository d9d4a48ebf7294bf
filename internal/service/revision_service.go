package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-dev/syllabus-api/internal/dto"
	"github.com/campus-dev/syllabus-api/internal/models"
	"github.com/campus-dev/syllabus-api/internal/repository"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
)

type revisionStore interface {
	Create(ctx context.Context, session *models.RevisionSession) error
	GetByID(ctx context.Context, id string) (*models.RevisionSession, error)
	ListBySyllabus(ctx context.Context, syllabusID string) ([]models.RevisionSession, error)
	CountBySyllabus(ctx context.Context, syllabusID string) (int, error)
	HasActiveSession(ctx context.Context, syllabusID string) (bool, error)
	Update(ctx context.Context, session *models.RevisionSession) error
}

type feedbackBinder interface {
	GetByIDs(ctx context.Context, ids []string) ([]models.Feedback, error)
	AttachToSession(ctx context.Context, sessionID string, feedbackIDs []string) error
	UpdateStatusBySession(ctx context.Context, sessionID string, status models.FeedbackStatus, resolvedBy, resolvedInVersion *string) error
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int, error)
}

type historyStore interface {
	Create(ctx context.Context, entry *models.SyllabusHistory) error
	ListBySyllabus(ctx context.Context, syllabusID string) ([]models.SyllabusHistory, error)
}

// RevisionService runs the post-publication correction cycle.
type RevisionService struct {
	sessions  revisionStore
	syllabi   syllabusStore
	feedback  feedbackBinder
	history   historyStore
	users     reviewerDirectory
	subjects  subjectStore
	audit     auditLogger
	notifier  Notifier
	metrics   TransitionObserver
	validator *validator.Validate
	logger    *zap.Logger
}

// RevisionServiceOption configures the service.
type RevisionServiceOption func(*RevisionService)

// WithRevisionNotifier wires the notification dispatcher.
func WithRevisionNotifier(n Notifier) RevisionServiceOption {
	return func(s *RevisionService) { s.notifier = n }
}

// WithRevisionMetrics wires the transition observer.
func WithRevisionMetrics(m TransitionObserver) RevisionServiceOption {
	return func(s *RevisionService) { s.metrics = m }
}

// NewRevisionService constructs the service.
func NewRevisionService(sessions revisionStore, syllabi syllabusStore, feedback feedbackBinder, history historyStore, users reviewerDirectory, subjects subjectStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...RevisionServiceOption) *RevisionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &RevisionService{
		sessions:  sessions,
		syllabi:   syllabi,
		feedback:  feedback,
		history:   history,
		users:     users,
		subjects:  subjects,
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

// Start opens a correction cycle against a published syllabus. The syllabus
// is snapshotted first, the selected feedback is bound to the session, and
// the assigned lecturer regains edit access.
func (s *RevisionService) Start(ctx context.Context, req dto.StartRevisionRequest, actor *models.JWTClaims) (*models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid revision payload")
	}

	syllabus, err := s.loadSyllabus(ctx, req.SyllabusID)
	if err != nil {
		return nil, err
	}
	if syllabus.Status != models.SyllabusStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "revisions can only target a published syllabus")
	}

	active, err := s.sessions.HasActiveSession(ctx, syllabus.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active sessions")
	}
	if active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "syllabus already has an active revision session")
	}

	items, err := s.feedback.GetByIDs(ctx, req.FeedbackIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	if missing := missingFeedbackIDs(req.FeedbackIDs, items); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("feedback not found: %s", strings.Join(missing, ", ")))
	}
	for _, fb := range items {
		if fb.SyllabusID != syllabus.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("feedback %s belongs to another syllabus", fb.ID))
		}
		if fb.Status != models.FeedbackStatusPending && fb.Status != models.FeedbackStatusAwaitingRevision {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("feedback %s is already %s", fb.ID, fb.Status))
		}
	}

	if syllabus.CreatedBy == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "syllabus has no creator to assign the revision to")
	}

	if err := s.snapshot(ctx, syllabus, models.HistoryReasonBeforeRevision, actor.UserID); err != nil {
		return nil, err
	}

	count, err := s.sessions.CountBySyllabus(ctx, syllabus.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to number session")
	}
	session := &models.RevisionSession{
		SyllabusID:       syllabus.ID,
		SessionNumber:    count + 1,
		Status:           models.RevisionStatusOpen,
		Description:      req.Description,
		InitiatedBy:      actor.UserID,
		InitiatedAt:      time.Now().UTC(),
		AssignedLecturer: syllabus.CreatedBy,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create revision session")
	}
	if err := s.feedback.AttachToSession(ctx, session.ID, req.FeedbackIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bind feedback to session")
	}
	if err := s.moveSyllabus(ctx, syllabus, models.SyllabusStatusRevisionInProgress, true, actor); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionRevisionStart, session.ID,
		[]byte(fmt.Sprintf(`{"syllabus_id":%q,"feedback_count":%d}`, syllabus.ID, len(req.FeedbackIDs))))
	s.dispatch(ctx, []string{session.AssignedLecturer}, models.NotificationKindRevisionAssigned,
		"Revision assigned",
		fmt.Sprintf("%s %s needs corrections: %s", syllabus.SubjectCode, syllabus.VersionLabel, req.Description),
		session)
	return session, nil
}

// Submit hands the revised content over to the department head.
func (s *RevisionService) Submit(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.RevisionSession, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.UserID != session.AssignedLecturer {
		return nil, appErrors.ErrForbidden
	}
	if session.Status != models.RevisionStatusOpen && session.Status != models.RevisionStatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("session in status %s cannot be submitted", session.Status))
	}
	syllabus, err := s.loadSyllabus(ctx, session.SyllabusID)
	if err != nil {
		return nil, err
	}
	if syllabus.Status != models.SyllabusStatusRevisionInProgress {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "syllabus is not in revision")
	}

	session.Status = models.RevisionStatusPendingHOD
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	if err := s.moveSyllabus(ctx, syllabus, models.SyllabusStatusPendingHODRevision, false, actor); err != nil {
		return nil, err
	}
	if err := s.feedback.UpdateStatusBySession(ctx, session.ID, models.FeedbackStatusInRevision, nil, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move session feedback")
	}

	subject, err := s.subjects.GetByID(ctx, syllabus.SubjectID)
	if err != nil {
		s.logger.Warn("failed to load subject for reviewer lookup", zap.Error(err))
	} else if s.users != nil {
		hods, err := s.users.FindByRoleAndDepartment(ctx, models.RoleHOD, subject.DepartmentID)
		if err != nil {
			s.logger.Warn("failed to resolve department heads", zap.Error(err))
		} else {
			ids := make([]string, 0, len(hods))
			for _, u := range hods {
				ids = append(ids, u.ID)
			}
			s.dispatch(ctx, ids, models.NotificationKindRevisionSubmitted,
				"Revision submitted for review",
				fmt.Sprintf("Revised %s %s is awaiting your review", syllabus.SubjectCode, syllabus.VersionLabel),
				session)
		}
	}
	return session, nil
}

// Review records the department head's decision. Approval completes the
// session and queues the syllabus for republication; a rejection sends it
// back to the lecturer with editing re-enabled.
func (s *RevisionService) Review(ctx context.Context, sessionID string, req dto.ReviewRevisionRequest, actor *models.JWTClaims) (*models.RevisionSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	approved := strings.EqualFold(req.Decision, "APPROVED")
	if !approved && !strings.EqualFold(req.Decision, "REJECTED") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED")
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.RevisionStatusPendingHOD {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("session in status %s cannot be reviewed", session.Status))
	}
	syllabus, err := s.loadSyllabus(ctx, session.SyllabusID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRevisionReviewer(ctx, syllabus, actor); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	decision := strings.ToUpper(req.Decision)
	session.HODDecision = &decision
	session.HODReviewedBy = &actor.UserID
	session.HODReviewedAt = &now
	if req.Comment != "" {
		comment := req.Comment
		session.HODComment = &comment
	}

	if approved {
		session.Status = models.RevisionStatusCompleted
		if err := s.sessions.Update(ctx, session); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
		}
		if err := s.moveSyllabus(ctx, syllabus, models.SyllabusStatusPendingAdminRepub, false, actor); err != nil {
			return nil, err
		}
		s.dispatch(ctx, []string{session.AssignedLecturer}, models.NotificationKindRevisionApproved,
			"Revision approved",
			fmt.Sprintf("Revised %s %s passed review and awaits republication", syllabus.SubjectCode, syllabus.VersionLabel),
			session)
		s.notifyAdmins(ctx, session, syllabus)
	} else {
		session.Status = models.RevisionStatusInProgress
		if err := s.sessions.Update(ctx, session); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
		}
		if err := s.moveSyllabus(ctx, syllabus, models.SyllabusStatusRevisionInProgress, true, actor); err != nil {
			return nil, err
		}
		s.dispatch(ctx, []string{session.AssignedLecturer}, models.NotificationKindRevisionRejected,
			"Revision needs more work",
			fmt.Sprintf("Revised %s %s was sent back: %s", syllabus.SubjectCode, syllabus.VersionLabel, req.Comment),
			session)
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionRevisionReview, session.ID,
		[]byte(fmt.Sprintf(`{"decision":%q}`, decision)))
	return session, nil
}

// Republish closes out a completed session: the syllabus returns to
// PUBLISHED under the next major version label and the bound feedback is
// resolved.
func (s *RevisionService) Republish(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.RevisionStatusCompleted ||
		session.HODDecision == nil || !strings.EqualFold(*session.HODDecision, "APPROVED") {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session is not approved for republication")
	}
	if session.RepublishedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session was already republished")
	}
	syllabus, err := s.loadSyllabus(ctx, session.SyllabusID)
	if err != nil {
		return nil, err
	}
	if syllabus.Status != models.SyllabusStatusPendingAdminRepub {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "syllabus is not awaiting republication")
	}

	if err := s.snapshot(ctx, syllabus, models.HistoryReasonBeforeRepublish, actor.UserID); err != nil {
		return nil, err
	}

	number := syllabus.VersionNumber + 1
	label := models.NextMajorLabel(number)
	editEnabled := false
	from := syllabus.Status
	if err := s.syllabi.UpdateStatus(ctx, repository.UpdateSyllabusStatusParams{
		ID:            syllabus.ID,
		RowVersion:    syllabus.RowVersion,
		Status:        models.SyllabusStatusPublished,
		VersionLabel:  &label,
		VersionNumber: &number,
		IsEditEnabled: &editEnabled,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "syllabus was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to republish syllabus")
	}
	syllabus.Status = models.SyllabusStatusPublished
	syllabus.VersionLabel = label
	syllabus.VersionNumber = number
	syllabus.RowVersion++
	if s.metrics != nil {
		s.metrics.ObserveTransition(from, models.SyllabusStatusPublished)
	}

	now := time.Now().UTC()
	session.RepublishedBy = &actor.UserID
	session.RepublishedAt = &now
	session.CompletedAt = &now
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete session")
	}

	if err := s.feedback.UpdateStatusBySession(ctx, session.ID, models.FeedbackStatusResolved, &actor.UserID, &label); err != nil {
		s.logger.Warn("failed to resolve session feedback", zap.Error(err))
	}
	s.notifyResolvedReporters(ctx, session, syllabus)

	s.emitAudit(ctx, actor.UserID, models.AuditActionRepublish, session.ID,
		[]byte(fmt.Sprintf(`{"syllabus_id":%q,"version_label":%q}`, syllabus.ID, label)))
	s.dispatch(ctx, []string{session.AssignedLecturer}, models.NotificationKindPublished,
		"Syllabus republished",
		fmt.Sprintf("%s is live again as %s", syllabus.SubjectCode, label),
		session)
	return session, nil
}

// Cancel aborts a non-terminal session. Bound feedback returns to the
// awaiting pool and the syllabus goes back to PUBLISHED.
func (s *RevisionService) Cancel(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalRevisionStatus(session.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session is already closed")
	}
	syllabus, err := s.loadSyllabus(ctx, session.SyllabusID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session.Status = models.RevisionStatusCancelled
	session.CompletedAt = &now
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel session")
	}
	if err := s.feedback.UpdateStatusBySession(ctx, session.ID, models.FeedbackStatusAwaitingRevision, nil, nil); err != nil {
		s.logger.Warn("failed to release session feedback", zap.Error(err))
	}
	if err := s.moveSyllabus(ctx, syllabus, models.SyllabusStatusPublished, false, actor); err != nil {
		return nil, err
	}
	return session, nil
}

// Get fetches one session.
func (s *RevisionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleHOD:
		return session, nil
	default:
		if session.AssignedLecturer == actor.UserID || session.InitiatedBy == actor.UserID {
			return session, nil
		}
		return nil, appErrors.ErrForbidden
	}
}

// ListBySyllabus returns all sessions of a syllabus.
func (s *RevisionService) ListBySyllabus(ctx context.Context, syllabusID string, actor *models.JWTClaims) ([]models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	sessions, err := s.sessions.ListBySyllabus(ctx, syllabusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// ListHistory returns the content snapshots taken for a syllabus. Students
// never see history; lecturers only see their own syllabi.
func (s *RevisionService) ListHistory(ctx context.Context, syllabusID string, actor *models.JWTClaims) ([]models.SyllabusHistory, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleStudent {
		return nil, appErrors.ErrForbidden
	}
	if actor.Role == models.RoleLecturer {
		syllabus, err := s.loadSyllabus(ctx, syllabusID)
		if err != nil {
			return nil, err
		}
		if syllabus.CreatedBy != actor.UserID {
			return nil, appErrors.ErrForbidden
		}
	}
	entries, err := s.history.ListBySyllabus(ctx, syllabusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}
	return entries, nil
}

func (s *RevisionService) loadSession(ctx context.Context, id string) (*models.RevisionSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "revision session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *RevisionService) loadSyllabus(ctx context.Context, id string) (*models.SyllabusVersion, error) {
	syllabus, err := s.syllabi.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}
	return syllabus, nil
}

func (s *RevisionService) moveSyllabus(ctx context.Context, syllabus *models.SyllabusVersion, status models.SyllabusStatus, editEnabled bool, actor *models.JWTClaims) error {
	from := syllabus.Status
	if err := s.syllabi.UpdateStatus(ctx, repository.UpdateSyllabusStatusParams{
		ID:            syllabus.ID,
		RowVersion:    syllabus.RowVersion,
		Status:        status,
		IsEditEnabled: &editEnabled,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "syllabus was modified concurrently")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update syllabus status")
	}
	syllabus.Status = status
	syllabus.IsEditEnabled = editEnabled
	syllabus.RowVersion++
	if s.metrics != nil {
		s.metrics.ObserveTransition(from, status)
	}
	return nil
}

// requireRevisionReviewer mirrors the approval-chain check: department heads
// review only their own department's subjects.
func (s *RevisionService) requireRevisionReviewer(ctx context.Context, syllabus *models.SyllabusVersion, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != models.RoleHOD {
		return appErrors.ErrForbidden
	}
	subject, err := s.subjects.GetByID(ctx, syllabus.SubjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if actor.DepartmentID == nil || *actor.DepartmentID != subject.DepartmentID {
		return appErrors.Clone(appErrors.ErrForbidden, "syllabus belongs to another department")
	}
	return nil
}

func (s *RevisionService) snapshot(ctx context.Context, syllabus *models.SyllabusVersion, reason, takenBy string) error {
	payload, err := json.Marshal(syllabus)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot syllabus")
	}
	entry := &models.SyllabusHistory{
		SyllabusID: syllabus.ID,
		Reason:     reason,
		Snapshot:   payload,
		TakenBy:    takenBy,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist snapshot")
	}
	return nil
}

func (s *RevisionService) notifyResolvedReporters(ctx context.Context, session *models.RevisionSession, syllabus *models.SyllabusVersion) {
	if s.notifier == nil {
		return
	}
	items, _, err := s.feedback.List(ctx, models.FeedbackFilter{RevisionSessionID: session.ID, PageSize: 100})
	if err != nil {
		s.logger.Warn("failed to list resolved feedback", zap.Error(err))
		return
	}
	seen := make(map[string]bool)
	var reporters []string
	for _, fb := range items {
		if !seen[fb.ReportedBy] {
			seen[fb.ReportedBy] = true
			reporters = append(reporters, fb.ReportedBy)
		}
	}
	body := fmt.Sprintf("%s was corrected and republished as %s", syllabus.SubjectCode, syllabus.VersionLabel)
	if summary := summarizeFeedbackTypes(items); summary != "" {
		body += " (" + summary + ")"
	}
	s.dispatch(ctx, reporters, models.NotificationKindFeedbackResolved,
		"Your feedback was resolved", body, session)
}

// summarizeFeedbackTypes renders per-type counts, e.g. "2 ERROR, 1 SUGGESTION".
func summarizeFeedbackTypes(items []models.Feedback) string {
	counts := make(map[models.FeedbackType]int)
	for _, fb := range items {
		counts[fb.Type]++
	}
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, fmt.Sprintf("%d %s", counts[models.FeedbackType(kind)], kind))
	}
	return strings.Join(parts, ", ")
}

func (s *RevisionService) notifyAdmins(ctx context.Context, session *models.RevisionSession, syllabus *models.SyllabusVersion) {
	if s.users == nil {
		return
	}
	admins, err := s.users.FindByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("failed to resolve admins", zap.Error(err))
		return
	}
	ids := make([]string, 0, len(admins))
	for _, u := range admins {
		ids = append(ids, u.ID)
	}
	s.dispatch(ctx, ids, models.NotificationKindRevisionApproved,
		"Revision awaiting republication",
		fmt.Sprintf("Revised %s %s passed review and is ready to republish", syllabus.SubjectCode, syllabus.VersionLabel),
		session)
}

func missingFeedbackIDs(requested []string, found []models.Feedback) []string {
	present := make(map[string]bool, len(found))
	for _, fb := range found {
		present[fb.ID] = true
	}
	var missing []string
	for _, id := range requested {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func (s *RevisionService) dispatch(ctx context.Context, recipients []string, kind models.NotificationKind, title, body string, payload interface{}) {
	if s.notifier == nil || len(recipients) == 0 {
		return
	}
	s.notifier.Dispatch(ctx, recipients, kind, title, body, payload)
}

func (s *RevisionService) emitAudit(ctx context.Context, userID, action, resourceID string, newValues []byte) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "revision_session",
		ResourceID: &resourceID,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to write audit log", zap.Error(err))
	}
}
