// internal/repository/delivery_log_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dhivaai/microlearn-backend/internal/model"
)

// DeliveryLogRepositoryInterface is the append-only audit trail. Rows are
// inserted one per attempt and never updated.
type DeliveryLogRepositoryInterface interface {
	Insert(entry *model.DeliveryLog) error
	ChannelCounts(courseID int) (map[string]int, error)
}

type DeliveryLogRepository struct {
	DB *sql.DB
}

// Insert appends one attempt record and returns the created ID.
func (r *DeliveryLogRepository) Insert(entry *model.DeliveryLog) error {
	if entry.DeliveredAt.IsZero() {
		entry.DeliveredAt = time.Now().UTC()
	}
	query := `
        INSERT INTO delivery_logs (content_id, learner_id, channel, success, error, delivered_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		entry.ContentID,
		entry.LearnerID,
		entry.Channel,
		entry.Success,
		entry.Error,
		entry.DeliveredAt,
	).Scan(&entry.ID)
}

// ChannelCounts aggregates a course's attempts per channel and outcome,
// keyed like "whatsapp_delivered" / "whatsapp_failed". Feeds the org
// dashboard analytics endpoint.
func (r *DeliveryLogRepository) ChannelCounts(courseID int) (map[string]int, error) {
	query := `
        SELECT dl.channel, dl.success, COUNT(*)
        FROM delivery_logs dl
        JOIN microlearnings m ON m.id = dl.content_id
        WHERE m.course_id = $1
        GROUP BY dl.channel, dl.success
    `
	rows, err := r.DB.Query(query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var channel string
		var success bool
		var count int
		if err := rows.Scan(&channel, &success, &count); err != nil {
			return nil, err
		}
		outcome := "failed"
		if success {
			outcome = "delivered"
		}
		counts[fmt.Sprintf("%s_%s", channel, outcome)] = count
	}
	return counts, rows.Err()
}

var _ DeliveryLogRepositoryInterface = (*DeliveryLogRepository)(nil)
