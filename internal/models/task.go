package models

import "time"

// AITaskKind enumerates supported background task categories.
type AITaskKind string

const (
	AITaskKindOutcomeMapping    AITaskKind = "OUTCOME_MAPPING"
	AITaskKindContentReview     AITaskKind = "CONTENT_REVIEW"
	AITaskKindSummaryGeneration AITaskKind = "SUMMARY_GENERATION"
)

// AITaskStatus tracks a dispatched task through its lifetime.
type AITaskStatus string

const (
	AITaskStatusQueued    AITaskStatus = "QUEUED"
	AITaskStatusRunning   AITaskStatus = "RUNNING"
	AITaskStatusSucceeded AITaskStatus = "SUCCEEDED"
	AITaskStatusFailed    AITaskStatus = "FAILED"
)

// AITask is a dispatched background job. The DB row is authoritative; status
// is mirrored into Redis for cheap polling.
type AITask struct {
	ID          string       `db:"id" json:"id"`
	Kind        AITaskKind   `db:"kind" json:"kind"`
	Payload     []byte       `db:"payload" json:"payload"`
	Status      AITaskStatus `db:"status" json:"status"`
	Result      []byte       `db:"result" json:"result,omitempty"`
	ErrorText   *string      `db:"error_text" json:"error_text,omitempty"`
	RequestedBy string       `db:"requested_by" json:"requested_by"`
	StartedAt   *time.Time   `db:"started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}
