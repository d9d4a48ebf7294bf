package models

import "time"

// History reason tags recorded before destructive transitions.
const (
	HistoryReasonBeforeRevision  = "BEFORE_REVISION"
	HistoryReasonBeforeRepublish = "BEFORE_REPUBLISH"
)

// SyllabusHistory is an immutable snapshot of a syllabus version taken before
// a destructive transition, kept for audit and rollback.
type SyllabusHistory struct {
	ID         string    `db:"id" json:"id"`
	SyllabusID string    `db:"syllabus_id" json:"syllabus_id"`
	Reason     string    `db:"reason" json:"reason"`
	Snapshot   []byte    `db:"snapshot" json:"snapshot"`
	TakenBy    string    `db:"taken_by" json:"taken_by"`
	TakenAt    time.Time `db:"taken_at" json:"taken_at"`
}
