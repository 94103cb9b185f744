// internal/repository/course_repository.go
package repository

import (
	"database/sql"

	appErrors "github.com/dhivaai/microlearn-backend/internal/errors"
	"github.com/dhivaai/microlearn-backend/internal/model"
)

type CourseRepositoryInterface interface {
	GetByID(id int) (*model.Course, error)
	CountContentItems(courseID int) (int, error)
}

type CourseRepository struct {
	DB *sql.DB
}

func (r *CourseRepository) GetByID(id int) (*model.Course, error) {
	query := `
        SELECT id, user_id, topic, total_days, status, created_at
        FROM courses WHERE id=$1
    `
	var c model.Course
	err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.UserID, &c.Topic, &c.TotalDays, &c.Status, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCourseNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

// CountContentItems returns the number of microlearning units in a course,
// used for the "Day N of M" framing in delivered messages.
func (r *CourseRepository) CountContentItems(courseID int) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM microlearnings WHERE course_id = $1`, courseID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ CourseRepositoryInterface = (*CourseRepository)(nil)
