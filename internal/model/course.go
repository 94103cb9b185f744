// internal/model/course.go
package model

import "time"

type Course struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Topic     string    `db:"topic" json:"topic"`
	TotalDays int       `db:"total_days" json:"total_days"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
