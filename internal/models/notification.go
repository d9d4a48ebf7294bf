package models

import "time"

// NotificationKind identifies the template used when rendering a notification.
type NotificationKind string

const (
	NotificationKindSubmitted         NotificationKind = "SYLLABUS_SUBMITTED"
	NotificationKindApproved          NotificationKind = "SYLLABUS_APPROVED"
	NotificationKindPublished         NotificationKind = "SYLLABUS_PUBLISHED"
	NotificationKindRejected          NotificationKind = "SYLLABUS_REJECTED"
	NotificationKindRevisionAssigned  NotificationKind = "REVISION_ASSIGNED"
	NotificationKindRevisionSubmitted NotificationKind = "REVISION_SUBMITTED"
	NotificationKindRevisionApproved  NotificationKind = "REVISION_APPROVED"
	NotificationKindRevisionRejected  NotificationKind = "REVISION_REJECTED"
	NotificationKindFeedbackResolved  NotificationKind = "FEEDBACK_RESOLVED"
	NotificationKindFeedbackResponse  NotificationKind = "FEEDBACK_RESPONSE"
)

// Notification is a persisted message for one recipient. Delivery to the push
// gateway is asynchronous; the row is the source of truth.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	Title       string           `db:"title" json:"title"`
	Body        string           `db:"body" json:"body"`
	Payload     []byte           `db:"payload" json:"payload,omitempty"`
	Read        bool             `db:"read" json:"read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter constrains listing queries.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Page        int
	PageSize    int
}
