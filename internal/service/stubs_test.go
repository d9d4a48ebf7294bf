package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campus-dev/syllabus-api/internal/models"
	"github.com/campus-dev/syllabus-api/internal/repository"
)

type syllabusStoreStub struct {
	items map[string]*models.SyllabusVersion
	// stale marks IDs whose reads return an outdated row version, emulating
	// a concurrent writer landing between the read and the guarded write.
	stale map[string]bool
	seq   int
}

func newSyllabusStoreStub() *syllabusStoreStub {
	return &syllabusStoreStub{
		items: make(map[string]*models.SyllabusVersion),
		stale: make(map[string]bool),
	}
}

func (s *syllabusStoreStub) Create(ctx context.Context, syllabus *models.SyllabusVersion) error {
	if syllabus.ID == "" {
		s.seq++
		syllabus.ID = fmt.Sprintf("syl-%d", s.seq)
	}
	if syllabus.Status == "" {
		syllabus.Status = models.SyllabusStatusDraft
	}
	if syllabus.RowVersion == 0 {
		syllabus.RowVersion = 1
	}
	copy := *syllabus
	s.items[syllabus.ID] = &copy
	return nil
}

func (s *syllabusStoreStub) GetByID(ctx context.Context, id string) (*models.SyllabusVersion, error) {
	item, ok := s.items[id]
	if !ok || item.IsDeleted {
		return nil, sql.ErrNoRows
	}
	copy := *item
	if s.stale[id] {
		copy.RowVersion--
	}
	return &copy, nil
}

func (s *syllabusStoreStub) List(ctx context.Context, filter models.SyllabusFilter) ([]models.SyllabusVersion, int, error) {
	var out []models.SyllabusVersion
	for _, item := range s.items {
		if item.IsDeleted {
			continue
		}
		if filter.SubjectID != "" && item.SubjectID != filter.SubjectID {
			continue
		}
		if filter.CreatedBy != "" && item.CreatedBy != filter.CreatedBy {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if item.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (s *syllabusStoreStub) UpdateContent(ctx context.Context, syllabus *models.SyllabusVersion) error {
	item, ok := s.items[syllabus.ID]
	if !ok || item.IsDeleted || item.RowVersion != syllabus.RowVersion {
		return sql.ErrNoRows
	}
	item.Content = append([]byte(nil), syllabus.Content...)
	item.EffectiveDate = syllabus.EffectiveDate
	item.UpdatedBy = syllabus.UpdatedBy
	item.RowVersion++
	return nil
}

func (s *syllabusStoreStub) UpdateStatus(ctx context.Context, params repository.UpdateSyllabusStatusParams) error {
	item, ok := s.items[params.ID]
	if !ok || item.IsDeleted || item.RowVersion != params.RowVersion {
		return sql.ErrNoRows
	}
	item.Status = params.Status
	item.RowVersion++
	if params.SubmittedBy != nil {
		item.SubmittedBy = params.SubmittedBy
		item.SubmittedAt = params.SubmittedAt
	}
	if params.HODApprovedBy != nil {
		item.HODApprovedBy = params.HODApprovedBy
		item.HODApprovedAt = params.HODApprovedAt
	}
	if params.AAApprovedBy != nil {
		item.AAApprovedBy = params.AAApprovedBy
		item.AAApprovedAt = params.AAApprovedAt
	}
	if params.PrincipalApprovedBy != nil {
		item.PrincipalApprovedBy = params.PrincipalApprovedBy
		item.PrincipalApprovedAt = params.PrincipalApprovedAt
	}
	if params.RejectionComment != nil {
		item.RejectionComment = params.RejectionComment
	}
	if params.VersionNumber != nil {
		item.VersionNumber = *params.VersionNumber
	}
	if params.VersionLabel != nil {
		item.VersionLabel = *params.VersionLabel
	}
	if params.IsEditEnabled != nil {
		item.IsEditEnabled = *params.IsEditEnabled
	}
	return nil
}

func (s *syllabusStoreStub) SoftDelete(ctx context.Context, id string, rowVersion int) error {
	item, ok := s.items[id]
	if !ok || item.IsDeleted || item.RowVersion != rowVersion {
		return sql.ErrNoRows
	}
	item.IsDeleted = true
	item.RowVersion++
	return nil
}

type subjectStoreStub struct {
	subjects map[string]*models.Subject
}

func newSubjectStoreStub() *subjectStoreStub {
	return &subjectStoreStub{subjects: make(map[string]*models.Subject)}
}

func (s *subjectStoreStub) GetByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *subject
	return &copy, nil
}

type userDirectoryStub struct {
	users []models.User
}

func (s *userDirectoryStub) FindByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *userDirectoryStub) FindByRoleAndDepartment(ctx context.Context, role models.UserRole, departmentID string) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		if u.Role == role && u.DepartmentID != nil && *u.DepartmentID == departmentID {
			out = append(out, u)
		}
	}
	return out, nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type notifierStub struct {
	dispatched []notifierCall
}

type notifierCall struct {
	Recipients []string
	Kind       models.NotificationKind
	Title      string
	Body       string
}

func (n *notifierStub) Dispatch(ctx context.Context, recipientIDs []string, kind models.NotificationKind, title, body string, payload interface{}) {
	n.dispatched = append(n.dispatched, notifierCall{
		Recipients: recipientIDs,
		Kind:       kind,
		Title:      title,
		Body:       body,
	})
}

type revisionStoreStub struct {
	sessions map[string]*models.RevisionSession
	seq      int
}

func newRevisionStoreStub() *revisionStoreStub {
	return &revisionStoreStub{sessions: make(map[string]*models.RevisionSession)}
}

func (s *revisionStoreStub) Create(ctx context.Context, session *models.RevisionSession) error {
	if session.ID == "" {
		s.seq++
		session.ID = fmt.Sprintf("rev-%d", s.seq)
	}
	copy := *session
	s.sessions[session.ID] = &copy
	return nil
}

func (s *revisionStoreStub) GetByID(ctx context.Context, id string) (*models.RevisionSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *session
	return &copy, nil
}

func (s *revisionStoreStub) ListBySyllabus(ctx context.Context, syllabusID string) ([]models.RevisionSession, error) {
	var out []models.RevisionSession
	for _, session := range s.sessions {
		if session.SyllabusID == syllabusID {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (s *revisionStoreStub) CountBySyllabus(ctx context.Context, syllabusID string) (int, error) {
	count := 0
	for _, session := range s.sessions {
		if session.SyllabusID == syllabusID {
			count++
		}
	}
	return count, nil
}

func (s *revisionStoreStub) HasActiveSession(ctx context.Context, syllabusID string) (bool, error) {
	for _, session := range s.sessions {
		if session.SyllabusID == syllabusID && !models.IsTerminalRevisionStatus(session.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (s *revisionStoreStub) Update(ctx context.Context, session *models.RevisionSession) error {
	if _, ok := s.sessions[session.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *session
	s.sessions[session.ID] = &copy
	return nil
}

type feedbackStoreStub struct {
	items map[string]*models.Feedback
	seq   int
}

func newFeedbackStoreStub() *feedbackStoreStub {
	return &feedbackStoreStub{items: make(map[string]*models.Feedback)}
}

func (s *feedbackStoreStub) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		s.seq++
		feedback.ID = fmt.Sprintf("fb-%d", s.seq)
	}
	if feedback.Status == "" {
		feedback.Status = models.FeedbackStatusPending
	}
	copy := *feedback
	s.items[feedback.ID] = &copy
	return nil
}

func (s *feedbackStoreStub) GetByID(ctx context.Context, id string) (*models.Feedback, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *item
	return &copy, nil
}

func (s *feedbackStoreStub) GetByIDs(ctx context.Context, ids []string) ([]models.Feedback, error) {
	var out []models.Feedback
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *feedbackStoreStub) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int, error) {
	var out []models.Feedback
	for _, item := range s.items {
		if filter.SyllabusID != "" && item.SyllabusID != filter.SyllabusID {
			continue
		}
		if filter.ReportedBy != "" && item.ReportedBy != filter.ReportedBy {
			continue
		}
		if filter.RevisionSessionID != "" && (item.RevisionSessionID == nil || *item.RevisionSessionID != filter.RevisionSessionID) {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (s *feedbackStoreStub) AttachToSession(ctx context.Context, sessionID string, feedbackIDs []string) error {
	for _, id := range feedbackIDs {
		if item, ok := s.items[id]; ok {
			sid := sessionID
			item.RevisionSessionID = &sid
			item.Status = models.FeedbackStatusAwaitingRevision
			item.EditEnabled = true
		}
	}
	return nil
}

func (s *feedbackStoreStub) UpdateStatusBySession(ctx context.Context, sessionID string, status models.FeedbackStatus, resolvedBy, resolvedInVersion *string) error {
	for _, item := range s.items {
		if item.RevisionSessionID != nil && *item.RevisionSessionID == sessionID {
			item.Status = status
			item.ResolvedBy = resolvedBy
			item.ResolvedInVersion = resolvedInVersion
			if resolvedBy != nil {
				now := time.Now().UTC()
				item.ResolvedAt = &now
			}
		}
	}
	return nil
}

func (s *feedbackStoreStub) Update(ctx context.Context, feedback *models.Feedback) error {
	if _, ok := s.items[feedback.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *feedback
	s.items[feedback.ID] = &copy
	return nil
}

type historyStoreStub struct {
	entries []*models.SyllabusHistory
}

func (s *historyStoreStub) Create(ctx context.Context, entry *models.SyllabusHistory) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *historyStoreStub) ListBySyllabus(ctx context.Context, syllabusID string) ([]models.SyllabusHistory, error) {
	out := make([]models.SyllabusHistory, 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.SyllabusID == syllabusID {
			out = append(out, *entry)
		}
	}
	return out, nil
}
