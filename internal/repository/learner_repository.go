// internal/repository/learner_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/dhivaai/microlearn-backend/internal/model"
)

// LearnerRepositoryInterface defines the learner lookups and mutations
// used by the delivery core and the settings/webhook flows.
type LearnerRepositoryInterface interface {
	GetByID(id int) (*model.Learner, error)
	GetByPhone(phone string) (*model.Learner, error)
	ListActiveByCourse(courseID int) ([]model.Learner, error)
	Create(l *model.Learner) error
	UpdatePreference(id int, preference string) error
	UpdateContact(id int, email, phone string) error
	UpdateStatus(id int, status string) error
}

// LearnerRepository is the concrete implementation
type LearnerRepository struct {
	DB *sql.DB
}

const learnerColumns = `id, user_id, course_id, name, email, phone_number, delivery_preference, status, created_at, updated_at`

func scanLearner(row interface{ Scan(...any) error }) (*model.Learner, error) {
	var l model.Learner
	err := row.Scan(
		&l.ID, &l.UserID, &l.CourseID, &l.Name, &l.Email, &l.Phone,
		&l.Preference, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByID fetches a learner by ID
func (r *LearnerRepository) GetByID(id int) (*model.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE id = $1`
	l, err := scanLearner(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return l, nil
}

// GetByPhone fetches a learner by their normalized phone number. Used by
// the inbound webhook to resolve the sender of a command.
func (r *LearnerRepository) GetByPhone(phone string) (*model.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE phone_number = $1 ORDER BY created_at DESC LIMIT 1`
	l, err := scanLearner(r.DB.QueryRow(query, phone))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// ListActiveByCourse fetches the active learners enrolled in a course.
// Paused learners are excluded so PAUSE actually stops delivery.
func (r *LearnerRepository) ListActiveByCourse(courseID int) ([]model.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE course_id = $1 AND status = $2`
	rows, err := r.DB.Query(query, courseID, model.LearnerActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	learners := []model.Learner{}
	for rows.Next() {
		l, err := scanLearner(rows)
		if err != nil {
			return nil, err
		}
		learners = append(learners, *l)
	}
	return learners, rows.Err()
}

func (r *LearnerRepository) Create(l *model.Learner) error {
	l.CreatedAt = time.Now()
	if l.Status == "" {
		l.Status = model.LearnerActive
	}
	query := `
        INSERT INTO learners (user_id, course_id, name, email, phone_number, delivery_preference, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query, l.UserID, l.CourseID, l.Name, l.Email, l.Phone, l.Preference, l.Status, l.CreatedAt).Scan(&l.ID)
}

func (r *LearnerRepository) UpdatePreference(id int, preference string) error {
	query := `UPDATE learners SET delivery_preference=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, preference, id)
	return err
}

func (r *LearnerRepository) UpdateContact(id int, email, phone string) error {
	query := `UPDATE learners SET email=$1, phone_number=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.Exec(query, email, phone, id)
	return err
}

func (r *LearnerRepository) UpdateStatus(id int, status string) error {
	query := `UPDATE learners SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, id)
	return err
}

var _ LearnerRepositoryInterface = (*LearnerRepository)(nil)
