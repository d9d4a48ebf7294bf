package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-dev/syllabus-api/internal/dto"
	"github.com/campus-dev/syllabus-api/internal/models"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
)

func lecturerClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleLecturer}
}

func hodClaims(userID, departmentID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleHOD, DepartmentID: &departmentID}
}

func adminClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleAdmin}
}

func newSyllabusServiceForTest(repo *syllabusStoreStub, subjects *subjectStoreStub, opts ...SyllabusServiceOption) (*SyllabusService, *auditStub, *notifierStub) {
	audit := &auditStub{}
	notifier := &notifierStub{}
	users := &userDirectoryStub{users: []models.User{
		{ID: "hod-cs", Role: models.RoleHOD, DepartmentID: strPtr("dept-cs")},
		{ID: "aa-1", Role: models.RoleAcademicAffairs},
		{ID: "principal-1", Role: models.RolePrincipal},
	}}
	opts = append([]SyllabusServiceOption{WithSyllabusNotifier(notifier)}, opts...)
	svc := NewSyllabusService(repo, subjects, users, audit, nil, nil, opts...)
	return svc, audit, notifier
}

func strPtr(s string) *string { return &s }

func seedSubject(subjects *subjectStoreStub) *models.Subject {
	subject := &models.Subject{
		ID:           "subj-1",
		Code:         "CS101",
		Name:         "Introduction to Programming",
		Credits:      3,
		DepartmentID: "dept-cs",
	}
	subjects.subjects[subject.ID] = subject
	return subject
}

func TestSyllabusServiceCreateSnapshotsSubject(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, audit, _ := newSyllabusServiceForTest(repo, subjects)

	created, err := svc.Create(context.Background(), dto.CreateSyllabusRequest{
		SubjectID:     "subj-1",
		Content:       json.RawMessage(`{"weeks":14}`),
		EffectiveDate: "2026-09-01",
	}, lecturerClaims("lect-1"))
	require.NoError(t, err)

	assert.Equal(t, models.SyllabusStatusDraft, created.Status)
	assert.Equal(t, "v1.0", created.VersionLabel)
	assert.Equal(t, 1, created.VersionNumber)
	assert.Equal(t, "CS101", created.SubjectCode)
	assert.Equal(t, "Introduction to Programming", created.SubjectName)
	assert.Equal(t, 3, created.SubjectCredits)
	assert.Equal(t, "lect-1", created.CreatedBy)
	require.NotNil(t, created.EffectiveDate)
	assert.Len(t, audit.logs, 1)
}

func TestSyllabusServiceCreateRejectsStudent(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	_, err := svc.Create(context.Background(), dto.CreateSyllabusRequest{
		SubjectID: "subj-1",
		Content:   json.RawMessage(`{}`),
	}, &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSyllabusServiceFullApprovalChain(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, notifier := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	owner := lecturerClaims("lect-1")
	created, err := svc.Create(ctx, dto.CreateSyllabusRequest{
		SubjectID: "subj-1",
		Content:   json.RawMessage(`{"weeks":14}`),
	}, owner)
	require.NoError(t, err)

	// Retire target: an older published version of the same subject.
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID:        "syl-old",
		SubjectID: "subj-1",
		Status:    models.SyllabusStatusPublished,
		CreatedBy: "lect-1",
	}))

	submitted, err := svc.Submit(ctx, created.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.SyllabusStatusPendingHOD, submitted.Status)
	stored := repo.items[created.ID]
	require.NotNil(t, stored.SubmittedBy)
	assert.Equal(t, "lect-1", *stored.SubmittedBy)

	_, err = svc.Approve(ctx, created.ID, hodClaims("hod-1", "dept-cs"))
	require.NoError(t, err)
	assert.Equal(t, models.SyllabusStatusPendingAA, repo.items[created.ID].Status)
	require.NotNil(t, repo.items[created.ID].HODApprovedBy)

	_, err = svc.Approve(ctx, created.ID, &models.JWTClaims{UserID: "aa-1", Role: models.RoleAcademicAffairs})
	require.NoError(t, err)
	assert.Equal(t, models.SyllabusStatusPendingPrincipal, repo.items[created.ID].Status)

	_, err = svc.Approve(ctx, created.ID, &models.JWTClaims{UserID: "principal-1", Role: models.RolePrincipal})
	require.NoError(t, err)
	assert.Equal(t, models.SyllabusStatusApproved, repo.items[created.ID].Status)
	require.NotNil(t, repo.items[created.ID].PrincipalApprovedBy)

	published, err := svc.Approve(ctx, created.ID, adminClaims("admin-1"))
	require.NoError(t, err)
	assert.Equal(t, models.SyllabusStatusPublished, published.Status)
	assert.Equal(t, models.SyllabusStatusInactive, repo.items["syl-old"].Status)

	var kinds []models.NotificationKind
	for _, call := range notifier.dispatched {
		kinds = append(kinds, call.Kind)
	}
	assert.Contains(t, kinds, models.NotificationKindSubmitted)
	assert.Contains(t, kinds, models.NotificationKindApproved)
	assert.Contains(t, kinds, models.NotificationKindPublished)
}

func TestSyllabusServiceApproveWrongRole(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID:        "syl-1",
		SubjectID: "subj-1",
		Status:    models.SyllabusStatusPendingAA,
		CreatedBy: "lect-1",
	}))

	_, err := svc.Approve(ctx, "syl-1", hodClaims("hod-1", "dept-cs"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSyllabusServiceApproveHODWrongDepartment(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID:        "syl-1",
		SubjectID: "subj-1",
		Status:    models.SyllabusStatusPendingHOD,
		CreatedBy: "lect-1",
	}))

	_, err := svc.Approve(ctx, "syl-1", hodClaims("hod-math", "dept-math"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "another department")
}

func TestSyllabusServiceApproveNonPending(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID:        "syl-1",
		SubjectID: "subj-1",
		Status:    models.SyllabusStatusDraft,
		CreatedBy: "lect-1",
	}))

	_, err := svc.Approve(ctx, "syl-1", adminClaims("admin-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestSyllabusServiceRejectRequiresPendingStatus(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, notifier := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID:        "syl-1",
		SubjectID: "subj-1",
		Status:    models.SyllabusStatusDraft,
		CreatedBy: "lect-1",
	}))

	_, err := svc.Reject(ctx, "syl-1", dto.RejectSyllabusRequest{Comment: "missing assessment plan"}, adminClaims("admin-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	repo.items["syl-1"].Status = models.SyllabusStatusPendingHOD
	rejected, err := svc.Reject(ctx, "syl-1", dto.RejectSyllabusRequest{Comment: "missing assessment plan"}, hodClaims("hod-1", "dept-cs"))
	require.NoError(t, err)
	assert.Equal(t, models.SyllabusStatusRejected, rejected.Status)
	require.NotNil(t, repo.items["syl-1"].RejectionComment)
	assert.Equal(t, "missing assessment plan", *repo.items["syl-1"].RejectionComment)
	require.NotEmpty(t, notifier.dispatched)
	assert.Equal(t, []string{"lect-1"}, notifier.dispatched[len(notifier.dispatched)-1].Recipients)
}

func TestSyllabusServiceUpdateConflictOnStaleRowVersion(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID:            "syl-1",
		SubjectID:     "subj-1",
		Status:        models.SyllabusStatusDraft,
		IsEditEnabled: true,
		CreatedBy:     "lect-1",
		Content:       json.RawMessage(`{}`),
	}))
	// A concurrent writer bumped the stored row after our read.
	repo.stale["syl-1"] = true

	_, err := svc.Update(ctx, "syl-1", dto.UpdateSyllabusRequest{Content: json.RawMessage(`{"weeks":15}`)}, lecturerClaims("lect-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSyllabusServiceUpdateOnlyEditableStatuses(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID:        "syl-1",
		SubjectID: "subj-1",
		Status:    models.SyllabusStatusPendingHOD,
		CreatedBy: "lect-1",
		Content:   json.RawMessage(`{"weeks":14}`),
	}))

	// A version sitting in the approval chain is frozen.
	_, err := svc.Update(ctx, "syl-1", dto.UpdateSyllabusRequest{Content: json.RawMessage(`{"weeks":15}`)}, lecturerClaims("lect-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.JSONEq(t, `{"weeks":14}`, string(repo.items["syl-1"].Content))

	// A rejected version reopens for rework and can be resubmitted.
	repo.items["syl-1"].Status = models.SyllabusStatusRejected
	updated, err := svc.Update(ctx, "syl-1", dto.UpdateSyllabusRequest{Content: json.RawMessage(`{"weeks":15}`)}, lecturerClaims("lect-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"weeks":15}`, string(updated.Content))

	resubmitted, err := svc.Submit(ctx, "syl-1", lecturerClaims("lect-1"))
	require.NoError(t, err)
	assert.Equal(t, models.SyllabusStatusPendingHOD, resubmitted.Status)
}

func TestSyllabusServiceListIntersectsVisibility(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID: "syl-draft", SubjectID: "subj-1", Status: models.SyllabusStatusDraft, CreatedBy: "lect-1",
	}))
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID: "syl-pub", SubjectID: "subj-1", Status: models.SyllabusStatusPublished, CreatedBy: "lect-1",
	}))

	student := &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent}

	// A student asking for drafts gets nothing, not an error.
	items, total, err := svc.List(ctx, dto.SyllabusQuery{Statuses: []models.SyllabusStatus{models.SyllabusStatusDraft}}, student)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)

	items, total, err = svc.List(ctx, dto.SyllabusQuery{}, student)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "syl-pub", items[0].ID)

	// Admin sees everything.
	_, total, err = svc.List(ctx, dto.SyllabusQuery{}, adminClaims("admin-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestSyllabusServiceVersionChainCycleGuard(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	a := &models.SyllabusVersion{ID: "syl-a", SubjectID: "subj-1", Status: models.SyllabusStatusPublished, CreatedBy: "lect-1", PreviousVersionID: strPtr("syl-b")}
	b := &models.SyllabusVersion{ID: "syl-b", SubjectID: "subj-1", Status: models.SyllabusStatusInactive, CreatedBy: "lect-1", PreviousVersionID: strPtr("syl-a")}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	_, err := svc.ListVersionChain(ctx, "syl-a", adminClaims("admin-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDataIntegrity.Code, appErrors.FromError(err).Code)
}

func TestSyllabusServiceVersionChainWalksAncestry(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{ID: "syl-v1", SubjectID: "subj-1", Status: models.SyllabusStatusInactive, CreatedBy: "lect-1"}))
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{ID: "syl-v2", SubjectID: "subj-1", Status: models.SyllabusStatusPublished, CreatedBy: "lect-1", PreviousVersionID: strPtr("syl-v1")}))

	chain, err := svc.ListVersionChain(ctx, "syl-v2", adminClaims("admin-1"))
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "syl-v2", chain[0].ID)
	assert.Equal(t, "syl-v1", chain[1].ID)
}

func TestSyllabusServiceCloneBumpsLabel(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID:            "syl-pub",
		SubjectID:     "subj-1",
		VersionNumber: 3,
		VersionLabel:  "v2.9",
		Status:        models.SyllabusStatusPublished,
		SubjectCode:   "CS101",
		Content:       json.RawMessage(`{"weeks":14}`),
		CreatedBy:     "lect-1",
	}))

	clone, err := svc.Clone(ctx, "syl-pub", lecturerClaims("lect-2"))
	require.NoError(t, err)
	assert.Equal(t, models.SyllabusStatusDraft, clone.Status)
	assert.Equal(t, "v3.0", clone.VersionLabel)
	assert.Equal(t, 4, clone.VersionNumber)
	require.NotNil(t, clone.PreviousVersionID)
	assert.Equal(t, "syl-pub", *clone.PreviousVersionID)
	assert.Equal(t, "lect-2", clone.CreatedBy)

	_, err = svc.Clone(ctx, clone.ID, lecturerClaims("lect-2"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestSyllabusServiceDeleteOnlyDrafts(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{ID: "syl-pub", SubjectID: "subj-1", Status: models.SyllabusStatusPublished, CreatedBy: "lect-1"}))
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{ID: "syl-draft", SubjectID: "subj-1", Status: models.SyllabusStatusDraft, CreatedBy: "lect-1"}))

	err := svc.Delete(ctx, "syl-pub", lecturerClaims("lect-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(ctx, "syl-draft", lecturerClaims("lect-1")))
	_, err = svc.Get(ctx, "syl-draft", adminClaims("admin-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSyllabusServiceCompare(t *testing.T) {
	repo := newSyllabusStoreStub()
	subjects := newSubjectStoreStub()
	seedSubject(subjects)
	svc, _, _ := newSyllabusServiceForTest(repo, subjects)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID: "syl-v1", SubjectID: "subj-1", VersionLabel: "v1.0",
		Status: models.SyllabusStatusInactive, SubjectCode: "CS101",
		Content: json.RawMessage(`{"weeks":14}`), CreatedBy: "lect-1",
	}))
	require.NoError(t, repo.Create(ctx, &models.SyllabusVersion{
		ID: "syl-v2", SubjectID: "subj-1", VersionLabel: "v2.0",
		Status: models.SyllabusStatusPublished, SubjectCode: "CS101",
		Content: json.RawMessage(`{"weeks":15}`), CreatedBy: "lect-1",
	}))

	comparison, err := svc.Compare(ctx, "syl-v1", "syl-v2", adminClaims("admin-1"))
	require.NoError(t, err)

	byName := map[string]models.SyllabusComparisonField{}
	for _, field := range comparison.Fields {
		byName[field.Name] = field
	}
	assert.True(t, byName["version_label"].Different)
	assert.True(t, byName["content"].Different)
	assert.False(t, byName["subject_code"].Different)
}
