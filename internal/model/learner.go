// internal/model/learner.go
package model

import "time"

// Delivery preferences a learner can pick during onboarding.
const (
	PreferenceWhatsapp = "whatsapp"
	PreferenceEmail    = "email"
	PreferenceBoth     = "both"
)

// Learner statuses. Paused learners keep their profile but receive nothing.
const (
	LearnerActive = "active"
	LearnerPaused = "paused"
)

// Learner ties one user to one course with their contact methods and
// channel preference. Email and Phone may be empty; the router applies
// fallback when the preferred channel has no contact method.
type Learner struct {
	ID         int        `db:"id" json:"id"`
	UserID     int        `db:"user_id" json:"user_id"`
	CourseID   int        `db:"course_id" json:"course_id"`
	Name       string     `db:"name" json:"name"`
	Email      string     `db:"email" json:"email,omitempty"`
	Phone      string     `db:"phone_number" json:"phone_number,omitempty"`
	Preference string     `db:"delivery_preference" json:"delivery_preference"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
