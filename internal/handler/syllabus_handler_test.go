package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-dev/syllabus-api/internal/dto"
	internalmiddleware "github.com/campus-dev/syllabus-api/internal/middleware"
	"github.com/campus-dev/syllabus-api/internal/models"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
)

type syllabusServiceMock struct {
	lastQuery dto.SyllabusQuery
	approve   func(id string, actor *models.JWTClaims) (*models.SyllabusVersion, error)
}

func (m *syllabusServiceMock) Create(_ context.Context, req dto.CreateSyllabusRequest, actor *models.JWTClaims) (*models.SyllabusVersion, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.SyllabusVersion{ID: "syl-1", SubjectID: req.SubjectID, Status: models.SyllabusStatusDraft, CreatedBy: actor.UserID}, nil
}

func (m *syllabusServiceMock) Update(_ context.Context, id string, _ dto.UpdateSyllabusRequest, _ *models.JWTClaims) (*models.SyllabusVersion, error) {
	return &models.SyllabusVersion{ID: id, Status: models.SyllabusStatusDraft}, nil
}

func (m *syllabusServiceMock) Delete(context.Context, string, *models.JWTClaims) error {
	return nil
}

func (m *syllabusServiceMock) Submit(_ context.Context, id string, _ *models.JWTClaims) (*models.SyllabusVersion, error) {
	return &models.SyllabusVersion{ID: id, Status: models.SyllabusStatusPendingHOD}, nil
}

func (m *syllabusServiceMock) Approve(_ context.Context, id string, actor *models.JWTClaims) (*models.SyllabusVersion, error) {
	if m.approve != nil {
		return m.approve(id, actor)
	}
	return &models.SyllabusVersion{ID: id, Status: models.SyllabusStatusPendingAA}, nil
}

func (m *syllabusServiceMock) Reject(_ context.Context, id string, _ dto.RejectSyllabusRequest, _ *models.JWTClaims) (*models.SyllabusVersion, error) {
	return &models.SyllabusVersion{ID: id, Status: models.SyllabusStatusRejected}, nil
}

func (m *syllabusServiceMock) Clone(_ context.Context, id string, _ *models.JWTClaims) (*models.SyllabusVersion, error) {
	return &models.SyllabusVersion{ID: "syl-clone", Status: models.SyllabusStatusDraft}, nil
}

func (m *syllabusServiceMock) Get(_ context.Context, id string, _ *models.JWTClaims) (*models.SyllabusVersion, error) {
	if id == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
	}
	return &models.SyllabusVersion{ID: id, Status: models.SyllabusStatusPublished}, nil
}

func (m *syllabusServiceMock) List(_ context.Context, query dto.SyllabusQuery, _ *models.JWTClaims) ([]models.SyllabusVersion, int, error) {
	m.lastQuery = query
	return []models.SyllabusVersion{{ID: "syl-1", Status: models.SyllabusStatusPublished}}, 1, nil
}

func (m *syllabusServiceMock) Compare(_ context.Context, fromID, toID string, _ *models.JWTClaims) (*models.SyllabusComparison, error) {
	return &models.SyllabusComparison{FromID: fromID, ToID: toID}, nil
}

func (m *syllabusServiceMock) ListVersionChain(_ context.Context, id string, _ *models.JWTClaims) ([]models.SyllabusVersion, error) {
	return []models.SyllabusVersion{{ID: id}}, nil
}

func buildSyllabusRouter(mock *syllabusServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: "test-user",
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	h := NewSyllabusHandler(mock)
	router.POST("/syllabi", h.Create)
	router.GET("/syllabi", h.List)
	router.GET("/syllabi/:id", h.Get)
	router.POST("/syllabi/:id/approve", internalmiddleware.RequireRoles(models.RoleHOD, models.RoleAcademicAffairs, models.RolePrincipal, models.RoleAdmin), h.Approve)
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestSyllabusHandlerCreate(t *testing.T) {
	router := buildSyllabusRouter(&syllabusServiceMock{})

	payload := `{"subjectId":"subj-1","content":{"description":"intro"}}`
	req, _ := http.NewRequest(http.MethodPost, "/syllabi", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleLecturer))

	resp := performRequest(router, req)
	require.Equal(t, http.StatusCreated, resp.Code)

	var envelope struct {
		Data models.SyllabusVersion `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "syl-1", envelope.Data.ID)
	assert.Equal(t, models.SyllabusStatusDraft, envelope.Data.Status)
}

func TestSyllabusHandlerCreateInvalidPayload(t *testing.T) {
	router := buildSyllabusRouter(&syllabusServiceMock{})

	req, _ := http.NewRequest(http.MethodPost, "/syllabi", bytes.NewBufferString(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleLecturer))

	resp := performRequest(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), appErrors.ErrValidation.Code)
}

func TestSyllabusHandlerListParsesStatuses(t *testing.T) {
	mock := &syllabusServiceMock{}
	router := buildSyllabusRouter(mock)

	req, _ := http.NewRequest(http.MethodGet, "/syllabi?status=published,%20draft&subjectId=subj-1&page=2&pageSize=5", nil)
	req.Header.Set("X-Test-Role", string(models.RoleAdmin))

	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, "subj-1", mock.lastQuery.SubjectID)
	assert.Equal(t, []models.SyllabusStatus{models.SyllabusStatusPublished, models.SyllabusStatusDraft}, mock.lastQuery.Statuses)
	assert.Equal(t, 2, mock.lastQuery.Page)
	assert.Equal(t, 5, mock.lastQuery.PageSize)
	assert.Contains(t, resp.Body.String(), `"total_count":1`)
}

func TestSyllabusHandlerGetNotFound(t *testing.T) {
	router := buildSyllabusRouter(&syllabusServiceMock{})

	req, _ := http.NewRequest(http.MethodGet, "/syllabi/missing", nil)
	req.Header.Set("X-Test-Role", string(models.RoleStudent))

	resp := performRequest(router, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), appErrors.ErrNotFound.Code)
}

func TestSyllabusHandlerApproveRBAC(t *testing.T) {
	mock := &syllabusServiceMock{
		approve: func(id string, actor *models.JWTClaims) (*models.SyllabusVersion, error) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "syllabus is not pending review")
		},
	}
	router := buildSyllabusRouter(mock)

	req, _ := http.NewRequest(http.MethodPost, "/syllabi/syl-1/approve", nil)
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	resp := performRequest(router, req)
	require.Equal(t, http.StatusForbidden, resp.Code)

	req, _ = http.NewRequest(http.MethodPost, "/syllabi/syl-1/approve", nil)
	req.Header.Set("X-Test-Role", string(models.RoleHOD))
	resp = performRequest(router, req)
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), appErrors.ErrInvalidState.Code)
}
