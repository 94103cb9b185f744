// internal/model/delivery_log.go
package model

import "time"

// Channels recorded in delivery logs. "unknown" marks an attempt that was
// rejected before any transport was chosen (bad preference value).
const (
	ChannelWhatsapp = "whatsapp"
	ChannelEmail    = "email"
	ChannelUnknown  = "unknown"
)

// DeliveryLog is an append-only audit row: exactly one per attempted
// channel per delivery cycle, never updated after insert.
type DeliveryLog struct {
	ID          int       `db:"id" json:"id"`
	ContentID   int       `db:"content_id" json:"content_id"`
	LearnerID   int       `db:"learner_id" json:"learner_id"`
	Channel     string    `db:"channel" json:"channel"`
	Success     bool      `db:"success" json:"success"`
	Error       string    `db:"error" json:"error,omitempty"`
	DeliveredAt time.Time `db:"delivered_at" json:"delivered_at"`
}
