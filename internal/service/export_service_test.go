package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-dev/syllabus-api/internal/dto"
	"github.com/campus-dev/syllabus-api/internal/models"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
	"github.com/campus-dev/syllabus-api/pkg/storage"
)

type fileStoreStub struct {
	saved map[string][]byte
}

func newFileStoreStub() *fileStoreStub {
	return &fileStoreStub{saved: make(map[string][]byte)}
}

func (s *fileStoreStub) Save(filename string, data []byte) (string, error) {
	s.saved[filename] = data
	return filename, nil
}

func (s *fileStoreStub) Path(filename string) string {
	return filepath.Join("/exports", filename)
}

func newExportServiceForTest() (*ExportService, *syllabusStoreStub, *fileStoreStub) {
	syllabi := newSyllabusStoreStub()
	files := newFileStoreStub()
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	svc := NewExportService(syllabi, files, signer, nil, nil)
	return svc, syllabi, files
}

func seedExportSyllabus(t *testing.T, syllabi *syllabusStoreStub, status models.SyllabusStatus) {
	t.Helper()
	require.NoError(t, syllabi.Create(context.Background(), &models.SyllabusVersion{
		ID:             "syl-1",
		SubjectID:      "subj-1",
		VersionLabel:   "v1.0",
		Status:         status,
		SubjectCode:    "CS101",
		SubjectName:    "Introduction to Programming",
		SubjectCredits: 3,
		Content:        json.RawMessage(`{"objectives":["read code","write code"],"weeks":14}`),
		CreatedBy:      "lect-1",
	}))
}

func TestExportServicePDFRoundTrip(t *testing.T) {
	svc, syllabi, files := newExportServiceForTest()
	seedExportSyllabus(t, syllabi, models.SyllabusStatusPublished)

	resp, err := svc.Export(context.Background(), "syl-1", dto.ExportSyllabusRequest{Format: "pdf"}, lecturerClaims("lect-1"))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	require.Len(t, files.saved, 1)
	for name, body := range files.saved {
		assert.Contains(t, name, "cs101-v1_0-")
		assert.Contains(t, name, ".pdf")
		assert.NotEmpty(t, body)
	}

	path, err := svc.ResolveDownload(resp.Token)
	require.NoError(t, err)
	assert.Contains(t, path, "/exports/")
}

func TestExportServiceCSV(t *testing.T) {
	svc, syllabi, files := newExportServiceForTest()
	seedExportSyllabus(t, syllabi, models.SyllabusStatusPublished)

	_, err := svc.Export(context.Background(), "syl-1", dto.ExportSyllabusRequest{Format: "csv"}, adminClaims("admin-1"))
	require.NoError(t, err)

	require.Len(t, files.saved, 1)
	for name, body := range files.saved {
		assert.Contains(t, name, ".csv")
		assert.Contains(t, string(body), "CS101")
	}
}

func TestExportServiceStudentOnlyPublished(t *testing.T) {
	svc, syllabi, _ := newExportServiceForTest()
	seedExportSyllabus(t, syllabi, models.SyllabusStatusDraft)

	student := &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent}
	_, err := svc.Export(context.Background(), "syl-1", dto.ExportSyllabusRequest{Format: "pdf"}, student)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, syllabi, _ := newExportServiceForTest()
	seedExportSyllabus(t, syllabi, models.SyllabusStatusPublished)

	_, err := svc.Export(context.Background(), "syl-1", dto.ExportSyllabusRequest{Format: "docx"}, adminClaims("admin-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceResolveDownloadRejectsTamperedToken(t *testing.T) {
	svc, syllabi, _ := newExportServiceForTest()
	seedExportSyllabus(t, syllabi, models.SyllabusStatusPublished)

	resp, err := svc.Export(context.Background(), "syl-1", dto.ExportSyllabusRequest{Format: "pdf"}, adminClaims("admin-1"))
	require.NoError(t, err)

	_, err = svc.ResolveDownload(resp.Token + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
