package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campus-dev/syllabus-api/internal/models"
)

func newSyllabusRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func syllabusRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "subject_id", "version_number", "version_label", "status",
		"subject_code", "subject_name", "subject_credits", "content", "effective_date",
		"previous_version_id", "created_by", "updated_by", "submitted_by", "submitted_at",
		"hod_approved_by", "hod_approved_at", "aa_approved_by", "aa_approved_at",
		"principal_approved_by", "principal_approved_at", "rejection_comment",
		"is_edit_enabled", "is_deleted", "row_version", "created_at", "updated_at",
	})
}

func TestSyllabusRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newSyllabusRepoMock(t)
	defer cleanup()

	repo := NewSyllabusRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO syllabus_versions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	syllabus := &models.SyllabusVersion{
		SubjectID:      "subj-1",
		VersionNumber:  1,
		VersionLabel:   "v1.0",
		SubjectCode:    "CS101",
		SubjectName:    "Intro to Computing",
		SubjectCredits: 3,
		Content:        []byte(`{"objectives":["foundations"]}`),
		CreatedBy:      "lecturer-1",
	}
	require.NoError(t, repo.Create(context.Background(), syllabus))
	require.NotEmpty(t, syllabus.ID)
	require.Equal(t, models.SyllabusStatusDraft, syllabus.Status)
	require.Equal(t, 1, syllabus.RowVersion)

	rows := syllabusRows().AddRow(
		syllabus.ID, "subj-1", 1, "v1.0", "DRAFT",
		"CS101", "Intro to Computing", 3, `{"objectives":["foundations"]}`, nil,
		nil, "lecturer-1", nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil,
		false, false, 1, time.Now(), time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, subject_id, version_number")).
		WithArgs(syllabus.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), syllabus.ID)
	require.NoError(t, err)
	require.Equal(t, models.SyllabusStatusDraft, found.Status)
	require.Equal(t, "v1.0", found.VersionLabel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyllabusRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newSyllabusRepoMock(t)
	defer cleanup()

	repo := NewSyllabusRepository(db)
	rows := syllabusRows().AddRow(
		"syl-1", "subj-1", 2, "v2.0", "PUBLISHED",
		"CS101", "Intro to Computing", 3, `{}`, nil,
		"syl-0", "lecturer-1", nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil,
		false, false, 4, time.Now(), time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, subject_id, version_number")).
		WithArgs("subj-1", "PUBLISHED").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("subj-1", "PUBLISHED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SyllabusFilter{
		SubjectID: "subj-1",
		Statuses:  []models.SyllabusStatus{models.SyllabusStatusPublished},
		Page:      1,
		PageSize:  20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)
	require.Equal(t, "syl-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyllabusRepositoryUpdateStatusStampsStage(t *testing.T) {
	db, mock, cleanup := newSyllabusRepoMock(t)
	defer cleanup()

	repo := NewSyllabusRepository(db)
	now := time.Now()
	actor := "hod-1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE syllabus_versions SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), UpdateSyllabusStatusParams{
		ID:            "syl-1",
		RowVersion:    2,
		Status:        models.SyllabusStatusPendingAA,
		HODApprovedBy: &actor,
		HODApprovedAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyllabusRepositoryUpdateStatusStaleRowVersion(t *testing.T) {
	db, mock, cleanup := newSyllabusRepoMock(t)
	defer cleanup()

	repo := NewSyllabusRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE syllabus_versions SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), UpdateSyllabusStatusParams{
		ID:         "syl-1",
		RowVersion: 1,
		Status:     models.SyllabusStatusPendingHOD,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyllabusRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newSyllabusRepoMock(t)
	defer cleanup()

	repo := NewSyllabusRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE syllabus_versions")).
		WithArgs("syl-1", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "syl-1", 1))
	require.NoError(t, mock.ExpectationsWereMet())
}
