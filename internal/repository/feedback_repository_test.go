package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campus-dev/syllabus-api/internal/models"
)

func newFeedbackRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func feedbackRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "syllabus_id", "reported_by", "type", "section", "title", "description", "status",
		"admin_response", "responded_by", "responded_at", "edit_enabled", "revision_session_id",
		"resolved_by", "resolved_at", "resolved_in_version", "created_at", "updated_at",
	})
}

func TestFeedbackRepositoryCreateDefaultsToPending(t *testing.T) {
	db, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	repo := NewFeedbackRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO feedback")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	feedback := &models.Feedback{
		SyllabusID:  "syl-1",
		ReportedBy:  "student-1",
		Type:        models.FeedbackTypeError,
		Section:     models.FeedbackSectionAssessment,
		Title:       "assessment weights",
		Description: "weights do not add up to 100",
	}
	require.NoError(t, repo.Create(context.Background(), feedback))
	require.Equal(t, models.FeedbackStatusPending, feedback.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryListBySyllabus(t *testing.T) {
	db, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	repo := NewFeedbackRepository(db)
	rows := feedbackRows().AddRow(
		"fb-1", "syl-1", "student-1", "ERROR", "ASSESSMENT", "weights", "weights off", "PENDING",
		nil, nil, nil, false, nil,
		nil, nil, nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, syllabus_id, reported_by")).
		WithArgs("syl-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("syl-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.FeedbackFilter{SyllabusID: "syl-1"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryAttachToSession(t *testing.T) {
	db, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	repo := NewFeedbackRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("edit_enabled = TRUE")).
		WithArgs("rev-1", "AWAITING_REVISION", sqlmock.AnyArg(), "fb-1", "fb-2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.AttachToSession(context.Background(), "rev-1", []string{"fb-1", "fb-2"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryUpdateStatusBySession(t *testing.T) {
	db, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	repo := NewFeedbackRepository(db)
	resolvedBy := "admin-1"
	version := "v2.1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE feedback")).
		WithArgs("rev-1", "RESOLVED", &resolvedBy, sqlmock.AnyArg(), &version, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.UpdateStatusBySession(context.Background(), "rev-1", models.FeedbackStatusResolved, &resolvedBy, &version)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
