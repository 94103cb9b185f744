// internal/repository/content_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/dhivaai/microlearn-backend/internal/model"
)

// ContentRepositoryInterface covers the content-item lifecycle the
// orchestrator drives: find due items, claim them, and settle the outcome.
type ContentRepositoryInterface interface {
	ListDue(now time.Time) ([]model.ContentItem, error)
	GetByID(id int) (*model.ContentItem, error)
	Claim(id int) (bool, error)
	Release(id int) error
	MarkSent(id int, sentAt time.Time) error
	RecentSentByCourse(courseID, limit int) ([]model.ContentItem, error)
	StatusCounts(courseID int) (map[string]int, error)
}

type ContentRepository struct {
	DB *sql.DB
}

const contentColumns = `id, course_id, day_number, subject, intro, concept, recap, status, scheduled_for, sent_at, created_at`

func scanContentItem(row interface{ Scan(...any) error }) (*model.ContentItem, error) {
	var c model.ContentItem
	err := row.Scan(
		&c.ID, &c.CourseID, &c.DayNumber, &c.Subject, &c.Intro, &c.Concept,
		&c.Recap, &c.Status, &c.ScheduledFor, &c.SentAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListDue fetches pending items whose schedule has elapsed.
func (r *ContentRepository) ListDue(now time.Time) ([]model.ContentItem, error) {
	query := `
        SELECT ` + contentColumns + `
        FROM microlearnings
        WHERE status = $1 AND scheduled_for <= $2
        ORDER BY scheduled_for ASC
    `
	rows, err := r.DB.Query(query, model.ContentPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.ContentItem{}
	for rows.Next() {
		c, err := scanContentItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func (r *ContentRepository) GetByID(id int) (*model.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM microlearnings WHERE id=$1`
	c, err := scanContentItem(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// Claim transitions pending -> sending atomically. A false return means
// another cycle already owns the item, which is the overlap guard for
// concurrent scheduler invocations.
func (r *ContentRepository) Claim(id int) (bool, error) {
	query := `UPDATE microlearnings SET status=$1 WHERE id=$2 AND status=$3`
	res, err := r.DB.Exec(query, model.ContentSending, id, model.ContentPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release hands a claimed item back for the next cycle to retry.
func (r *ContentRepository) Release(id int) error {
	query := `UPDATE microlearnings SET status=$1 WHERE id=$2 AND status=$3`
	_, err := r.DB.Exec(query, model.ContentPending, id, model.ContentSending)
	return err
}

// MarkSent is terminal. The guard keeps a delayed follow-up leg from
// rewriting sent_at on an item the immediate leg already settled.
func (r *ContentRepository) MarkSent(id int, sentAt time.Time) error {
	query := `UPDATE microlearnings SET status=$1, sent_at=$2 WHERE id=$3 AND status <> $1`
	_, err := r.DB.Exec(query, model.ContentSent, sentAt, id)
	return err
}

// RecentSentByCourse returns the latest delivered items, newest first.
// Backs the SUMMARY webhook command.
func (r *ContentRepository) RecentSentByCourse(courseID, limit int) ([]model.ContentItem, error) {
	query := `
        SELECT ` + contentColumns + `
        FROM microlearnings
        WHERE course_id = $1 AND status = $2
        ORDER BY sent_at DESC
        LIMIT $3
    `
	rows, err := r.DB.Query(query, courseID, model.ContentSent, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.ContentItem{}
	for rows.Next() {
		c, err := scanContentItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// StatusCounts groups a course's content items by lifecycle status.
func (r *ContentRepository) StatusCounts(courseID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM microlearnings WHERE course_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		model.ContentPending: 0,
		model.ContentSending: 0,
		model.ContentSent:    0,
		model.ContentFailed:  0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ ContentRepositoryInterface = (*ContentRepository)(nil)
