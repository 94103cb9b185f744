// internal/model/content_item.go
package model

import "time"

// Content item lifecycle. "sending" marks an item claimed by a running
// delivery cycle so an overlapping cycle cannot double-send it. "failed"
// is reserved for manual intervention and is never set automatically.
const (
	ContentPending = "pending"
	ContentSending = "sending"
	ContentSent    = "sent"
	ContentFailed  = "failed"
)

// ContentItem is one scheduled microlearning unit within a course.
type ContentItem struct {
	ID           int        `db:"id" json:"id"`
	CourseID     int        `db:"course_id" json:"course_id"`
	DayNumber    int        `db:"day_number" json:"day_number"`
	Subject      string     `db:"subject" json:"subject"`
	Intro        string     `db:"intro" json:"intro"`
	Concept      string     `db:"concept" json:"concept"`
	Recap        string     `db:"recap" json:"recap"`
	Status       string     `db:"status" json:"status"`
	ScheduledFor time.Time  `db:"scheduled_for" json:"scheduled_for"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
