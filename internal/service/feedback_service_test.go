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

func newFeedbackServiceForTest() (*FeedbackService, *feedbackStoreStub, *syllabusStoreStub, *notifierStub) {
	repo := newFeedbackStoreStub()
	syllabi := newSyllabusStoreStub()
	notifier := &notifierStub{}
	svc := NewFeedbackService(repo, syllabi, &auditStub{}, nil, nil, WithFeedbackNotifier(notifier))
	return svc, repo, syllabi, notifier
}

func seedPublishedSyllabus(t *testing.T, syllabi *syllabusStoreStub, id string, status models.SyllabusStatus) {
	t.Helper()
	require.NoError(t, syllabi.Create(context.Background(), &models.SyllabusVersion{
		ID:          id,
		SubjectID:   "subj-1",
		Status:      status,
		SubjectCode: "CS101",
		Content:     json.RawMessage(`{}`),
		CreatedBy:   "lect-1",
	}))
}

func TestFeedbackServiceCreateRequiresPublished(t *testing.T) {
	svc, _, syllabi, _ := newFeedbackServiceForTest()
	seedPublishedSyllabus(t, syllabi, "syl-draft", models.SyllabusStatusDraft)
	seedPublishedSyllabus(t, syllabi, "syl-pub", models.SyllabusStatusPublished)

	ctx := context.Background()
	student := &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent}

	_, err := svc.Create(ctx, dto.CreateFeedbackRequest{
		SyllabusID:  "syl-draft",
		Type:        models.FeedbackTypeError,
		Section:     models.FeedbackSectionContent,
		Title:       "typo",
		Description: "week 3 header is wrong",
	}, student)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	created, err := svc.Create(ctx, dto.CreateFeedbackRequest{
		SyllabusID:  "syl-pub",
		Type:        models.FeedbackTypeError,
		Section:     models.FeedbackSectionContent,
		Title:       "typo",
		Description: "week 3 header is wrong",
	}, student)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStatusPending, created.Status)
	assert.Equal(t, "stud-1", created.ReportedBy)
}

func TestFeedbackServiceRespondAcceptAndReject(t *testing.T) {
	svc, repo, syllabi, notifier := newFeedbackServiceForTest()
	seedPublishedSyllabus(t, syllabi, "syl-pub", models.SyllabusStatusPublished)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Feedback{ID: "fb-1", SyllabusID: "syl-pub", ReportedBy: "stud-1"}))
	require.NoError(t, repo.Create(ctx, &models.Feedback{ID: "fb-2", SyllabusID: "syl-pub", ReportedBy: "stud-2"}))

	admin := adminClaims("admin-1")
	accepted, err := svc.Respond(ctx, "fb-1", dto.RespondFeedbackRequest{Accept: true, Response: "will fix in next revision"}, admin)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStatusAwaitingRevision, accepted.Status)
	require.NotNil(t, accepted.RespondedBy)
	assert.Equal(t, "admin-1", *accepted.RespondedBy)

	rejected, err := svc.Respond(ctx, "fb-2", dto.RespondFeedbackRequest{Accept: false, Response: "working as intended"}, admin)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStatusRejected, rejected.Status)

	require.Len(t, notifier.dispatched, 2)
	assert.Equal(t, []string{"stud-1"}, notifier.dispatched[0].Recipients)
	assert.Equal(t, models.NotificationKindFeedbackResponse, notifier.dispatched[0].Kind)
}

func TestFeedbackServiceRespondTwiceFails(t *testing.T) {
	svc, repo, syllabi, _ := newFeedbackServiceForTest()
	seedPublishedSyllabus(t, syllabi, "syl-pub", models.SyllabusStatusPublished)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Feedback{ID: "fb-1", SyllabusID: "syl-pub", ReportedBy: "stud-1"}))

	admin := adminClaims("admin-1")
	_, err := svc.Respond(ctx, "fb-1", dto.RespondFeedbackRequest{Accept: true, Response: "ok"}, admin)
	require.NoError(t, err)

	_, err = svc.Respond(ctx, "fb-1", dto.RespondFeedbackRequest{Accept: false, Response: "changed my mind"}, admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceRespondRequiresAdmin(t *testing.T) {
	svc, repo, syllabi, _ := newFeedbackServiceForTest()
	seedPublishedSyllabus(t, syllabi, "syl-pub", models.SyllabusStatusPublished)
	require.NoError(t, repo.Create(context.Background(), &models.Feedback{ID: "fb-1", SyllabusID: "syl-pub", ReportedBy: "stud-1"}))

	_, err := svc.Respond(context.Background(), "fb-1", dto.RespondFeedbackRequest{Accept: true, Response: "ok"}, hodClaims("hod-1", "dept-cs"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceGetVisibility(t *testing.T) {
	svc, repo, _, _ := newFeedbackServiceForTest()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Feedback{ID: "fb-1", SyllabusID: "syl-pub", ReportedBy: "stud-1"}))

	_, err := svc.Get(ctx, "fb-1", &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "fb-1", &models.JWTClaims{UserID: "stud-2", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(ctx, "fb-1", hodClaims("hod-1", "dept-cs"))
	require.NoError(t, err)
}

func TestFeedbackServiceListScoping(t *testing.T) {
	svc, repo, syllabi, _ := newFeedbackServiceForTest()
	seedPublishedSyllabus(t, syllabi, "syl-pub", models.SyllabusStatusPublished)

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Feedback{ID: "fb-1", SyllabusID: "syl-pub", ReportedBy: "stud-1"}))
	require.NoError(t, repo.Create(ctx, &models.Feedback{ID: "fb-2", SyllabusID: "syl-pub", ReportedBy: "stud-2"}))

	// Students only see their own reports.
	items, total, err := svc.List(ctx, dto.FeedbackQuery{}, &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "fb-1", items[0].ID)

	// Lecturers must scope to a syllabus they own.
	_, _, err = svc.List(ctx, dto.FeedbackQuery{}, lecturerClaims("lect-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, total, err = svc.List(ctx, dto.FeedbackQuery{SyllabusID: "syl-pub"}, lecturerClaims("lect-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, _, err = svc.List(ctx, dto.FeedbackQuery{SyllabusID: "syl-pub"}, lecturerClaims("lect-other"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
