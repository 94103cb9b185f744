// internal/delivery/followup.go
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhivaai/microlearn-backend/internal/model"
	"github.com/dhivaai/microlearn-backend/internal/queue"
)

// FollowUpWorker executes delayed delivery legs pulled off the follow-up
// queue: the email half of a both-preference delivery, staggered behind
// the WhatsApp half.
type FollowUpWorker struct {
	Content  ContentStore
	Learners LearnerStore
	Courses  CourseStore
	Router   *Router
	Now      func() time.Time
	Log      zerolog.Logger
}

// Process runs one queued follow-up. A returned error means the job never
// got as far as an attempt (lookup failure) and may be retried by the
// queue; a failed send is already in the delivery log and is not retried.
func (w *FollowUpWorker) Process(ctx context.Context, job queue.FollowUp) error {
	item, err := w.Content.GetByID(job.ContentID)
	if err != nil {
		return fmt.Errorf("fetch content item %d: %w", job.ContentID, err)
	}
	if item == nil {
		w.Log.Warn().Int("content_id", job.ContentID).Msg("⚠️ follow-up for missing content item, dropping")
		return nil
	}

	learner, err := w.Learners.GetByID(job.LearnerID)
	if err != nil {
		return fmt.Errorf("fetch learner %d: %w", job.LearnerID, err)
	}
	if learner == nil {
		w.Log.Warn().Int("learner_id", job.LearnerID).Msg("⚠️ follow-up for missing learner, dropping")
		w.releaseClaim(item)
		return nil
	}
	if learner.Status == model.LearnerPaused {
		// Release so the cycle after RESUME picks the item up again.
		w.Log.Info().Int("learner_id", learner.ID).Msg("⏸️ learner paused, dropping follow-up")
		w.releaseClaim(item)
		return nil
	}

	totalDays, err := w.Courses.CountContentItems(item.CourseID)
	if err != nil {
		totalDays = item.DayNumber
	}

	attempt := w.Router.DispatchChannel(ctx, learner, item, totalDays, job.Channel)
	if attempt.Success {
		// The WhatsApp leg may have settled the item already; MarkSent
		// is guarded so this only promotes a still-unsent item.
		if item.Status != model.ContentSent {
			if err := w.Content.MarkSent(item.ID, w.now()); err != nil {
				w.Log.Error().Err(err).Int("content_id", item.ID).Msg("⚠️ failed to mark content sent")
			}
		}
		return nil
	}

	// The delayed leg was this item's last chance in the cycle; hand a
	// still-claimed item back so the next cycle retries it.
	w.releaseClaim(item)
	return nil
}

// releaseClaim hands a still-claimed item back to pending. Every path that
// drops a follow-up goes through here so an item the orchestrator left in
// "sending" can never be stranded there.
func (w *FollowUpWorker) releaseClaim(item *model.ContentItem) {
	if item.Status != model.ContentSending {
		return
	}
	if err := w.Content.Release(item.ID); err != nil {
		w.Log.Error().Err(err).Int("content_id", item.ID).Msg("⚠️ failed to release content item")
	}
}

func (w *FollowUpWorker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now().UTC()
}
