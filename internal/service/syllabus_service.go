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
	"github.com/campus-dev/syllabus-api/internal/repository"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
)

// versionChainLimit bounds the ancestry walk so a corrupted
// previous_version_id link can never loop forever.
const versionChainLimit = 100

type syllabusStore interface {
	Create(ctx context.Context, syllabus *models.SyllabusVersion) error
	GetByID(ctx context.Context, id string) (*models.SyllabusVersion, error)
	List(ctx context.Context, filter models.SyllabusFilter) ([]models.SyllabusVersion, int, error)
	UpdateContent(ctx context.Context, syllabus *models.SyllabusVersion) error
	UpdateStatus(ctx context.Context, params repository.UpdateSyllabusStatusParams) error
	SoftDelete(ctx context.Context, id string, rowVersion int) error
}

type subjectStore interface {
	GetByID(ctx context.Context, id string) (*models.Subject, error)
}

type reviewerDirectory interface {
	FindByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	FindByRoleAndDepartment(ctx context.Context, role models.UserRole, departmentID string) ([]models.User, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Notifier fans a notification out to a set of recipients. Delivery is best
// effort and never blocks the workflow.
type Notifier interface {
	Dispatch(ctx context.Context, recipientIDs []string, kind models.NotificationKind, title, body string, payload interface{})
}

// TransitionObserver records workflow transitions for monitoring.
type TransitionObserver interface {
	ObserveTransition(from, to models.SyllabusStatus)
}

type syllabusCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SyllabusService orchestrates the syllabus approval workflow.
type SyllabusService struct {
	repo      syllabusStore
	subjects  subjectStore
	users     reviewerDirectory
	audit     auditLogger
	notifier  Notifier
	metrics   TransitionObserver
	cache     syllabusCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// SyllabusServiceOption configures the service.
type SyllabusServiceOption func(*SyllabusService)

// WithSyllabusNotifier wires the notification dispatcher.
func WithSyllabusNotifier(n Notifier) SyllabusServiceOption {
	return func(s *SyllabusService) { s.notifier = n }
}

// WithSyllabusMetrics wires the transition observer.
func WithSyllabusMetrics(m TransitionObserver) SyllabusServiceOption {
	return func(s *SyllabusService) { s.metrics = m }
}

// WithSyllabusCache wires the read-side cache for published versions.
func WithSyllabusCache(c syllabusCache, ttl time.Duration) SyllabusServiceOption {
	return func(s *SyllabusService) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewSyllabusService constructs the service.
func NewSyllabusService(repo syllabusStore, subjects subjectStore, users reviewerDirectory, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...SyllabusServiceOption) *SyllabusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &SyllabusService{
		repo:      repo,
		subjects:  subjects,
		users:     users,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cacheTTL:  10 * time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create stores a new draft version with the subject attributes snapshotted.
func (s *SyllabusService) Create(ctx context.Context, req dto.CreateSyllabusRequest, actor *models.JWTClaims) (*models.SyllabusVersion, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleLecturer && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid syllabus payload")
	}
	if !json.Valid(req.Content) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content must be valid JSON")
	}

	subject, err := s.subjects.GetByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	syllabus := &models.SyllabusVersion{
		SubjectID:      subject.ID,
		VersionNumber:  1,
		VersionLabel:   "v1.0",
		Status:         models.SyllabusStatusDraft,
		SubjectCode:    subject.Code,
		SubjectName:    subject.Name,
		SubjectCredits: subject.Credits,
		Content:        append([]byte(nil), req.Content...),
		CreatedBy:      actor.UserID,
	}
	if date, err := parseEffectiveDate(req.EffectiveDate); err != nil {
		return nil, err
	} else if date != nil {
		syllabus.EffectiveDate = date
	}

	if err := s.repo.Create(ctx, syllabus); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create syllabus")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSyllabusCreate,
		Resource:   "syllabus",
		ResourceID: &syllabus.ID,
		NewValues:  syllabus.Content,
	})
	return syllabus, nil
}

// Update edits the content of an editable version. The row version guards
// against concurrent writers.
func (s *SyllabusService) Update(ctx context.Context, id string, req dto.UpdateSyllabusRequest, actor *models.JWTClaims) (*models.SyllabusVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid syllabus payload")
	}
	if !json.Valid(req.Content) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content must be valid JSON")
	}
	syllabus, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrAdmin(syllabus, actor); err != nil {
		return nil, err
	}
	if !models.IsEditableStatus(syllabus.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("syllabus in status %s cannot be edited", syllabus.Status))
	}

	oldContent := append([]byte(nil), syllabus.Content...)
	syllabus.Content = append([]byte(nil), req.Content...)
	if date, err := parseEffectiveDate(req.EffectiveDate); err != nil {
		return nil, err
	} else if date != nil {
		syllabus.EffectiveDate = date
	}
	syllabus.UpdatedBy = &actor.UserID

	if err := s.repo.UpdateContent(ctx, syllabus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "syllabus was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update syllabus")
	}
	syllabus.RowVersion++
	s.invalidateCache(ctx, syllabus.ID)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSyllabusUpdate,
		Resource:   "syllabus",
		ResourceID: &syllabus.ID,
		OldValues:  oldContent,
		NewValues:  syllabus.Content,
	})
	return syllabus, nil
}

// Delete soft-deletes a draft. Any other status is refused.
func (s *SyllabusService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	syllabus, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireOwnerOrAdmin(syllabus, actor); err != nil {
		return err
	}
	if syllabus.Status != models.SyllabusStatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidState, "only drafts can be deleted")
	}
	if err := s.repo.SoftDelete(ctx, id, syllabus.RowVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "syllabus was modified concurrently")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete syllabus")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSyllabusDelete,
		Resource:   "syllabus",
		ResourceID: &syllabus.ID,
	})
	return nil
}

// Submit moves a draft or rejected version into the approval chain.
func (s *SyllabusService) Submit(ctx context.Context, id string, actor *models.JWTClaims) (*models.SyllabusVersion, error) {
	syllabus, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrAdmin(syllabus, actor); err != nil {
		return nil, err
	}
	if syllabus.Status != models.SyllabusStatusDraft && syllabus.Status != models.SyllabusStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("syllabus in status %s cannot be submitted", syllabus.Status))
	}

	now := time.Now().UTC()
	from := syllabus.Status
	params := repository.UpdateSyllabusStatusParams{
		ID:          syllabus.ID,
		RowVersion:  syllabus.RowVersion,
		Status:      models.SyllabusStatusPendingHOD,
		SubmittedBy: &actor.UserID,
		SubmittedAt: &now,
	}
	if err := s.transition(ctx, syllabus, params, from, actor); err != nil {
		return nil, err
	}

	subject, err := s.subjects.GetByID(ctx, syllabus.SubjectID)
	if err != nil {
		s.logger.Warn("failed to load subject for reviewer lookup", zap.Error(err))
	} else {
		s.notifyRole(ctx, models.RoleHOD, subject.DepartmentID, models.NotificationKindSubmitted,
			"Syllabus submitted for review",
			fmt.Sprintf("%s %s (%s) is awaiting your review", syllabus.SubjectCode, syllabus.VersionLabel, syllabus.SubjectName),
			syllabus)
	}
	return syllabus, nil
}

// Approve advances a pending version exactly one hop along the chain. The
// final hop publishes and retires any previously published version of the
// same subject.
func (s *SyllabusService) Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.SyllabusVersion, error) {
	syllabus, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ok := models.NextApprovalStatus(syllabus.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("syllabus in status %s cannot be approved", syllabus.Status))
	}
	if err := s.requireReviewer(ctx, syllabus, actor); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	from := syllabus.Status
	params := repository.UpdateSyllabusStatusParams{
		ID:         syllabus.ID,
		RowVersion: syllabus.RowVersion,
		Status:     next,
	}
	switch from {
	case models.SyllabusStatusPendingHOD:
		params.HODApprovedBy = &actor.UserID
		params.HODApprovedAt = &now
	case models.SyllabusStatusPendingAA:
		params.AAApprovedBy = &actor.UserID
		params.AAApprovedAt = &now
	case models.SyllabusStatusPendingPrincipal:
		params.PrincipalApprovedBy = &actor.UserID
		params.PrincipalApprovedAt = &now
	}
	if err := s.transition(ctx, syllabus, params, from, actor); err != nil {
		return nil, err
	}

	if next == models.SyllabusStatusPublished {
		s.retirePreviousPublished(ctx, syllabus, actor)
		s.notifyUser(ctx, syllabus.CreatedBy, models.NotificationKindPublished,
			"Syllabus published",
			fmt.Sprintf("%s %s is now the active version", syllabus.SubjectCode, syllabus.VersionLabel),
			syllabus)
	} else {
		s.notifyUser(ctx, syllabus.CreatedBy, models.NotificationKindApproved,
			"Syllabus approved",
			fmt.Sprintf("%s %s advanced to %s", syllabus.SubjectCode, syllabus.VersionLabel, next),
			syllabus)
	}
	return syllabus, nil
}

// Reject returns a pending version to REJECTED with a mandatory comment.
func (s *SyllabusService) Reject(ctx context.Context, id string, req dto.RejectSyllabusRequest, actor *models.JWTClaims) (*models.SyllabusVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection comment is required")
	}
	syllabus, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.IsPendingStatus(syllabus.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("syllabus in status %s cannot be rejected", syllabus.Status))
	}
	if err := s.requireReviewer(ctx, syllabus, actor); err != nil {
		return nil, err
	}

	from := syllabus.Status
	comment := req.Comment
	params := repository.UpdateSyllabusStatusParams{
		ID:               syllabus.ID,
		RowVersion:       syllabus.RowVersion,
		Status:           models.SyllabusStatusRejected,
		RejectionComment: &comment,
	}
	if err := s.transition(ctx, syllabus, params, from, actor); err != nil {
		return nil, err
	}
	syllabus.RejectionComment = &comment

	s.notifyUser(ctx, syllabus.CreatedBy, models.NotificationKindRejected,
		"Syllabus rejected",
		fmt.Sprintf("%s %s was rejected: %s", syllabus.SubjectCode, syllabus.VersionLabel, comment),
		syllabus)
	return syllabus, nil
}

// Clone derives a fresh draft from a published version, linking ancestry and
// bumping the version label.
func (s *SyllabusService) Clone(ctx context.Context, id string, actor *models.JWTClaims) (*models.SyllabusVersion, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleLecturer && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	source, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if source.Status != models.SyllabusStatusPublished && source.Status != models.SyllabusStatusInactive {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only published versions can be cloned")
	}
	label, err := models.NextVersionLabel(source.VersionLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDataIntegrity.Code, appErrors.ErrDataIntegrity.Status, "source version label is malformed")
	}

	sourceID := source.ID
	clone := &models.SyllabusVersion{
		SubjectID:         source.SubjectID,
		VersionNumber:     source.VersionNumber + 1,
		VersionLabel:      label,
		Status:            models.SyllabusStatusDraft,
		SubjectCode:       source.SubjectCode,
		SubjectName:       source.SubjectName,
		SubjectCredits:    source.SubjectCredits,
		Content:           append([]byte(nil), source.Content...),
		EffectiveDate:     source.EffectiveDate,
		PreviousVersionID: &sourceID,
		CreatedBy:         actor.UserID,
	}
	if err := s.repo.Create(ctx, clone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create syllabus clone")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSyllabusCreate,
		Resource:   "syllabus",
		ResourceID: &clone.ID,
		NewValues:  []byte(fmt.Sprintf(`{"cloned_from":%q}`, source.ID)),
	})
	return clone, nil
}

// Get fetches a single version enforcing role visibility.
func (s *SyllabusService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SyllabusVersion, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.cache != nil && actor.Role == models.RoleStudent {
		var cached models.SyllabusVersion
		if err := s.cache.Get(ctx, syllabusCacheKey(id), &cached); err == nil {
			if cached.Status == models.SyllabusStatusPublished {
				return &cached, nil
			}
		}
	}
	syllabus, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(syllabus, actor) {
		return nil, appErrors.ErrForbidden
	}
	if s.cache != nil && syllabus.Status == models.SyllabusStatusPublished {
		if err := s.cache.Set(ctx, syllabusCacheKey(id), syllabus, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache syllabus", zap.Error(err))
		}
	}
	return syllabus, nil
}

// List returns versions visible to the actor. An explicit status filter is
// intersected with the role's visible set so no caller can widen its scope.
func (s *SyllabusService) List(ctx context.Context, query dto.SyllabusQuery, actor *models.JWTClaims) ([]models.SyllabusVersion, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	visible := models.DefaultVisibleStatuses(actor.Role)
	statuses := query.Statuses
	if actor.Role != models.RoleAdmin {
		if len(statuses) == 0 {
			statuses = visible
		} else {
			statuses = intersectStatuses(statuses, visible)
			if len(statuses) == 0 {
				return []models.SyllabusVersion{}, 0, nil
			}
		}
	}
	filter := models.SyllabusFilter{
		SubjectID: query.SubjectID,
		Statuses:  statuses,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if actor.Role == models.RoleLecturer {
		filter.CreatedBy = actor.UserID
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list syllabi")
	}
	return items, total, nil
}

// Compare reports a field-by-field diff between two versions.
func (s *SyllabusService) Compare(ctx context.Context, fromID, toID string, actor *models.JWTClaims) (*models.SyllabusComparison, error) {
	from, err := s.Get(ctx, fromID, actor)
	if err != nil {
		return nil, err
	}
	to, err := s.Get(ctx, toID, actor)
	if err != nil {
		return nil, err
	}
	comparison := &models.SyllabusComparison{FromID: from.ID, ToID: to.ID}
	add := func(name, a, b string) {
		comparison.Fields = append(comparison.Fields, models.SyllabusComparisonField{
			Name:      name,
			FromValue: a,
			ToValue:   b,
			Different: a != b,
		})
	}
	add("version_label", from.VersionLabel, to.VersionLabel)
	add("status", string(from.Status), string(to.Status))
	add("subject_code", from.SubjectCode, to.SubjectCode)
	add("subject_name", from.SubjectName, to.SubjectName)
	add("subject_credits", fmt.Sprintf("%d", from.SubjectCredits), fmt.Sprintf("%d", to.SubjectCredits))
	add("effective_date", formatDate(from.EffectiveDate), formatDate(to.EffectiveDate))
	add("content", string(from.Content), string(to.Content))
	return comparison, nil
}

// ListVersionChain walks the ancestry of a version. A visited set caps the
// walk so a cyclic link chain terminates instead of spinning.
func (s *SyllabusService) ListVersionChain(ctx context.Context, id string, actor *models.JWTClaims) ([]models.SyllabusVersion, error) {
	head, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	chain := []models.SyllabusVersion{*head}
	visited := map[string]bool{head.ID: true}
	current := head
	for current.PreviousVersionID != nil && len(chain) < versionChainLimit {
		prevID := *current.PreviousVersionID
		if visited[prevID] {
			s.logger.Warn("version chain contains a cycle", zap.String("syllabus_id", id), zap.String("repeated_id", prevID))
			return nil, appErrors.Clone(appErrors.ErrDataIntegrity, "version chain contains a cycle")
		}
		prev, err := s.load(ctx, prevID)
		if err != nil {
			var appErr *appErrors.Error
			if errors.As(err, &appErr) && appErr.Code == appErrors.ErrNotFound.Code {
				break
			}
			return nil, err
		}
		visited[prev.ID] = true
		chain = append(chain, *prev)
		current = prev
	}
	return chain, nil
}

// MarkRevisionState is used by the revision workflow to move a published
// version through the revision statuses with row-version protection.
func (s *SyllabusService) MarkRevisionState(ctx context.Context, syllabus *models.SyllabusVersion, status models.SyllabusStatus, editEnabled bool, actor *models.JWTClaims) error {
	from := syllabus.Status
	params := repository.UpdateSyllabusStatusParams{
		ID:            syllabus.ID,
		RowVersion:    syllabus.RowVersion,
		Status:        status,
		IsEditEnabled: &editEnabled,
	}
	return s.transition(ctx, syllabus, params, from, actor)
}

func (s *SyllabusService) load(ctx context.Context, id string) (*models.SyllabusVersion, error) {
	syllabus, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}
	return syllabus, nil
}

func (s *SyllabusService) transition(ctx context.Context, syllabus *models.SyllabusVersion, params repository.UpdateSyllabusStatusParams, from models.SyllabusStatus, actor *models.JWTClaims) error {
	if err := s.repo.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "syllabus was modified concurrently")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update syllabus status")
	}
	syllabus.Status = params.Status
	syllabus.RowVersion++
	if params.IsEditEnabled != nil {
		syllabus.IsEditEnabled = *params.IsEditEnabled
	}
	s.invalidateCache(ctx, syllabus.ID)
	if s.metrics != nil {
		s.metrics.ObserveTransition(from, params.Status)
	}
	var userID *string
	if actor != nil {
		userID = &actor.UserID
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     models.AuditActionStatusTransition,
		Resource:   "syllabus",
		ResourceID: &syllabus.ID,
		OldValues:  []byte(fmt.Sprintf(`{"status":%q}`, from)),
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, params.Status)),
	})
	return nil
}

// requireReviewer checks the actor holds the role owning the current stage.
// Department heads only review syllabi whose subject belongs to their own
// department.
func (s *SyllabusService) requireReviewer(ctx context.Context, syllabus *models.SyllabusVersion, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	role, ok := reviewerRoleFor(syllabus.Status)
	if !ok || actor.Role != role {
		return appErrors.ErrForbidden
	}
	if role == models.RoleHOD {
		subject, err := s.subjects.GetByID(ctx, syllabus.SubjectID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		if actor.DepartmentID == nil || *actor.DepartmentID != subject.DepartmentID {
			return appErrors.Clone(appErrors.ErrForbidden, "syllabus belongs to another department")
		}
	}
	return nil
}

func (s *SyllabusService) requireOwnerOrAdmin(syllabus *models.SyllabusVersion, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin || syllabus.CreatedBy == actor.UserID {
		return nil
	}
	return appErrors.ErrForbidden
}

func (s *SyllabusService) canRead(syllabus *models.SyllabusVersion, actor *models.JWTClaims) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if syllabus.CreatedBy == actor.UserID {
		return true
	}
	for _, status := range models.DefaultVisibleStatuses(actor.Role) {
		if status == syllabus.Status {
			return true
		}
	}
	return syllabus.Status == models.SyllabusStatusPublished && actor.Role != models.RoleStudent
}

// retirePreviousPublished flips older published versions of the subject to
// INACTIVE so at most one version is live per subject.
func (s *SyllabusService) retirePreviousPublished(ctx context.Context, published *models.SyllabusVersion, actor *models.JWTClaims) {
	others, _, err := s.repo.List(ctx, models.SyllabusFilter{
		SubjectID: published.SubjectID,
		Statuses:  []models.SyllabusStatus{models.SyllabusStatusPublished},
		PageSize:  100,
	})
	if err != nil {
		s.logger.Warn("failed to list published versions for retirement", zap.Error(err))
		return
	}
	for i := range others {
		if others[i].ID == published.ID {
			continue
		}
		prev := others[i]
		if err := s.transition(ctx, &prev, repository.UpdateSyllabusStatusParams{
			ID:         prev.ID,
			RowVersion: prev.RowVersion,
			Status:     models.SyllabusStatusInactive,
		}, models.SyllabusStatusPublished, actor); err != nil {
			s.logger.Warn("failed to retire previous published version",
				zap.String("syllabus_id", prev.ID), zap.Error(err))
		}
	}
}

func (s *SyllabusService) notifyRole(ctx context.Context, role models.UserRole, departmentID string, kind models.NotificationKind, title, body string, syllabus *models.SyllabusVersion) {
	if s.notifier == nil || s.users == nil {
		return
	}
	var recipients []models.User
	var err error
	if role == models.RoleHOD && departmentID != "" {
		recipients, err = s.users.FindByRoleAndDepartment(ctx, role, departmentID)
	} else {
		recipients, err = s.users.FindByRole(ctx, role)
	}
	if err != nil {
		s.logger.Warn("failed to resolve notification recipients", zap.String("role", string(role)), zap.Error(err))
		return
	}
	ids := make([]string, 0, len(recipients))
	for _, u := range recipients {
		ids = append(ids, u.ID)
	}
	s.notifier.Dispatch(ctx, ids, kind, title, body, syllabus)
}

func (s *SyllabusService) notifyUser(ctx context.Context, userID string, kind models.NotificationKind, title, body string, syllabus *models.SyllabusVersion) {
	if s.notifier == nil || userID == "" {
		return
	}
	s.notifier.Dispatch(ctx, []string{userID}, kind, title, body, syllabus)
}

func (s *SyllabusService) invalidateCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, syllabusCacheKey(id)); err != nil {
		s.logger.Warn("failed to invalidate syllabus cache", zap.Error(err))
	}
}

func (s *SyllabusService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to write audit log", zap.Error(err))
	}
}

func reviewerRoleFor(status models.SyllabusStatus) (models.UserRole, bool) {
	switch status {
	case models.SyllabusStatusPendingHOD:
		return models.RoleHOD, true
	case models.SyllabusStatusPendingAA:
		return models.RoleAcademicAffairs, true
	case models.SyllabusStatusPendingPrincipal:
		return models.RolePrincipal, true
	case models.SyllabusStatusApproved:
		return models.RoleAdmin, true
	default:
		return "", false
	}
}

func intersectStatuses(requested, visible []models.SyllabusStatus) []models.SyllabusStatus {
	allowed := make(map[models.SyllabusStatus]bool, len(visible))
	for _, s := range visible {
		allowed[s] = true
	}
	var out []models.SyllabusStatus
	for _, s := range requested {
		if allowed[s] {
			out = append(out, s)
		}
	}
	return out
}

func parseEffectiveDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effectiveDate must use YYYY-MM-DD")
	}
	return &parsed, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func syllabusCacheKey(id string) string {
	return "syllabus:" + id
}
