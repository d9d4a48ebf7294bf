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
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-dev/syllabus-api/internal/dto"
	"github.com/campus-dev/syllabus-api/internal/models"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
	"github.com/campus-dev/syllabus-api/pkg/export"
)

// DocumentRenderer turns the neutral document shape into a file body.
type DocumentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// DownloadSigner issues and validates download tokens.
type DownloadSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error)
}

// ExportService renders a syllabus version into a downloadable document.
type ExportService struct {
	syllabi   syllabusStore
	storage   fileStore
	signer    DownloadSigner
	renderers map[string]DocumentRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

// NewExportService constructs the service with PDF and CSV renderers.
func NewExportService(syllabi syllabusStore, storage fileStore, signer DownloadSigner, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExportService{
		syllabi: syllabi,
		storage: storage,
		signer:  signer,
		renderers: map[string]DocumentRenderer{
			"pdf": export.NewPDFExporter(),
			"csv": export.NewCSVExporter(),
		},
		validator: validate,
		logger:    logger,
	}
}

// Export renders a visible syllabus version and returns a signed download
// token for the written file.
func (s *ExportService) Export(ctx context.Context, syllabusID string, req dto.ExportSyllabusRequest, actor *models.JWTClaims) (*dto.ExportSyllabusResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be pdf or csv")
	}
	format := strings.ToLower(req.Format)
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
	}

	syllabus, err := s.syllabi.GetByID(ctx, syllabusID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}
	if actor.Role == models.RoleStudent && syllabus.Status != models.SyllabusStatusPublished {
		return nil, appErrors.ErrForbidden
	}

	doc := buildSyllabusDocument(syllabus)
	body, err := renderer.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("%s-%s-%s.%s",
		strings.ToLower(syllabus.SubjectCode), strings.ReplaceAll(syllabus.VersionLabel, ".", "_"), exportID[:8], format)
	if _, err := s.storage.Save(filename, body); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	return &dto.ExportSyllabusResponse{
		ExportID:  exportID,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates a token and returns the stored file path.
func (s *ExportService) ResolveDownload(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	return s.storage.Path(relPath), nil
}

// buildSyllabusDocument flattens the version metadata and its JSON content
// into the renderer-independent document shape. Content keys become
// sections; nested objects and arrays become labelled fields.
func buildSyllabusDocument(syllabus *models.SyllabusVersion) export.Document {
	doc := export.Document{
		Title:    fmt.Sprintf("%s - %s", syllabus.SubjectCode, syllabus.SubjectName),
		Subtitle: fmt.Sprintf("Version %s (%s)", syllabus.VersionLabel, syllabus.Status),
		Meta: []export.Field{
			{Label: "Subject code", Value: syllabus.SubjectCode},
			{Label: "Subject name", Value: syllabus.SubjectName},
			{Label: "Credits", Value: fmt.Sprintf("%d", syllabus.SubjectCredits)},
			{Label: "Version", Value: syllabus.VersionLabel},
			{Label: "Status", Value: string(syllabus.Status)},
			{Label: "Effective date", Value: formatDate(syllabus.EffectiveDate)},
		},
	}

	var content map[string]json.RawMessage
	if err := json.Unmarshal(syllabus.Content, &content); err != nil {
		doc.Sections = append(doc.Sections, export.Section{
			Title:  "Content",
			Fields: []export.Field{{Label: "raw", Value: string(syllabus.Content)}},
		})
		return doc
	}

	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		doc.Sections = append(doc.Sections, export.Section{
			Title:  sectionTitle(key),
			Fields: flattenJSON(content[key]),
		})
	}
	return doc
}

func flattenJSON(raw json.RawMessage) []export.Field {
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err == nil {
		keys := make([]string, 0, len(asMap))
		for k := range asMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]export.Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, export.Field{Label: sectionTitle(k), Value: stringify(asMap[k])})
		}
		return fields
	}

	var asList []interface{}
	if err := json.Unmarshal(raw, &asList); err == nil {
		fields := make([]export.Field, 0, len(asList))
		for i, item := range asList {
			fields = append(fields, export.Field{Label: fmt.Sprintf("%d", i+1), Value: stringify(item)})
		}
		return fields
	}

	var scalar interface{}
	_ = json.Unmarshal(raw, &scalar)
	return []export.Field{{Label: "", Value: stringify(scalar)}}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}

func sectionTitle(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
