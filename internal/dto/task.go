package dto

import (
	"encoding/json"

	"github.com/campus-dev/syllabus-api/internal/models"
)

// DispatchTaskRequest payload for queuing a background AI task.
type DispatchTaskRequest struct {
	Kind    models.AITaskKind `json:"kind" validate:"required"`
	Payload json.RawMessage   `json:"payload" validate:"required"`
}

// TaskStatusResponse is the polling shape returned for a dispatched task.
type TaskStatusResponse struct {
	ID        string              `json:"id"`
	Kind      models.AITaskKind   `json:"kind"`
	Status    models.AITaskStatus `json:"status"`
	Result    json.RawMessage     `json:"result,omitempty"`
	ErrorText string              `json:"error_text,omitempty"`
}
