package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campus-dev/syllabus-api/internal/models"
)

type analysisPayload struct {
	SyllabusID string `json:"syllabusId"`
}

// requiredSections are the content keys a complete syllabus is expected to fill.
var requiredSections = []string{"description", "objectives", "outcomes", "topics", "assessment", "materials"}

// DefaultTaskRunners returns the built-in analysis runners. They operate on
// the stored syllabus content only; a future model-backed runner can replace
// any entry through the TaskService constructor.
func DefaultTaskRunners(syllabi syllabusStore) map[models.AITaskKind]TaskRunner {
	return map[models.AITaskKind]TaskRunner{
		models.AITaskKindSummaryGeneration: TaskRunnerFunc(func(ctx context.Context, task *models.AITask) ([]byte, error) {
			content, syllabus, err := loadAnalysisContent(ctx, syllabi, task)
			if err != nil {
				return nil, err
			}
			summary := summarizeText(stringField(content, "description"), 60)
			return json.Marshal(map[string]interface{}{
				"syllabus_id":   syllabus.ID,
				"version_label": syllabus.VersionLabel,
				"summary":       summary,
			})
		}),
		models.AITaskKindOutcomeMapping: TaskRunnerFunc(func(ctx context.Context, task *models.AITask) ([]byte, error) {
			content, syllabus, err := loadAnalysisContent(ctx, syllabi, task)
			if err != nil {
				return nil, err
			}
			objectives := stringSliceField(content, "objectives")
			outcomes := stringSliceField(content, "outcomes")
			pairs := make([]map[string]string, 0, len(objectives))
			for i, objective := range objectives {
				pair := map[string]string{"objective": objective}
				if i < len(outcomes) {
					pair["outcome"] = outcomes[i]
				}
				pairs = append(pairs, pair)
			}
			return json.Marshal(map[string]interface{}{
				"syllabus_id": syllabus.ID,
				"mappings":    pairs,
				"unmapped":    len(outcomes) - len(objectives),
			})
		}),
		models.AITaskKindContentReview: TaskRunnerFunc(func(ctx context.Context, task *models.AITask) ([]byte, error) {
			content, syllabus, err := loadAnalysisContent(ctx, syllabi, task)
			if err != nil {
				return nil, err
			}
			missing := make([]string, 0)
			for _, section := range requiredSections {
				if _, ok := content[section]; !ok {
					missing = append(missing, section)
				}
			}
			return json.Marshal(map[string]interface{}{
				"syllabus_id":      syllabus.ID,
				"missing_sections": missing,
				"complete":         len(missing) == 0,
			})
		}),
	}
}

func loadAnalysisContent(ctx context.Context, syllabi syllabusStore, task *models.AITask) (map[string]interface{}, *models.SyllabusVersion, error) {
	var payload analysisPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, nil, fmt.Errorf("invalid task payload: %w", err)
	}
	if payload.SyllabusID == "" {
		return nil, nil, fmt.Errorf("task payload missing syllabusId")
	}
	syllabus, err := syllabi.GetByID(ctx, payload.SyllabusID)
	if err != nil {
		return nil, nil, fmt.Errorf("load syllabus %s: %w", payload.SyllabusID, err)
	}
	content := map[string]interface{}{}
	if len(syllabus.Content) > 0 {
		if err := json.Unmarshal(syllabus.Content, &content); err != nil {
			return nil, nil, fmt.Errorf("syllabus %s content is not valid JSON: %w", syllabus.ID, err)
		}
	}
	return content, syllabus, nil
}

func stringField(content map[string]interface{}, key string) string {
	if v, ok := content[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceField(content map[string]interface{}, key string) []string {
	raw, ok := content[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func summarizeText(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
