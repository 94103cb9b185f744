// internal/repository/feedback_repository.go
package repository

import (
	"database/sql"
	"time"
)

type FeedbackRepositoryInterface interface {
	Insert(learnerID, courseID, rating int) error
}

// FeedbackRepository stores lesson ratings coming in through the
// FEEDBACK webhook command.
type FeedbackRepository struct {
	DB *sql.DB
}

func (r *FeedbackRepository) Insert(learnerID, courseID, rating int) error {
	query := `
        INSERT INTO feedback (learner_id, course_id, rating, created_at)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.DB.Exec(query, learnerID, courseID, rating, time.Now())
	return err
}

var _ FeedbackRepositoryInterface = (*FeedbackRepository)(nil)
