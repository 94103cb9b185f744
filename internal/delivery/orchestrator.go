// internal/delivery/orchestrator.go
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhivaai/microlearn-backend/internal/model"
)

// ContentStore is the slice of the content repository the orchestrator
// and follow-up worker drive.
type ContentStore interface {
	ListDue(now time.Time) ([]model.ContentItem, error)
	GetByID(id int) (*model.ContentItem, error)
	Claim(id int) (bool, error)
	Release(id int) error
	MarkSent(id int, sentAt time.Time) error
}

type LearnerStore interface {
	GetByID(id int) (*model.Learner, error)
	ListActiveByCourse(courseID int) ([]model.Learner, error)
}

type CourseStore interface {
	CountContentItems(courseID int) (int, error)
}

// CycleResult summarizes one delivery cycle for the scheduler trigger.
type CycleResult struct {
	Due       int `json:"due"`
	Delivered int `json:"delivered"`
	Scheduled int `json:"scheduled_followups"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Orchestrator is the scheduled entry point: it pulls due content items,
// resolves each to its learners, runs the router, and settles the item's
// status. Items are processed sequentially; one bad record is logged and
// skipped so it cannot block the rest of the batch.
type Orchestrator struct {
	Content  ContentStore
	Learners LearnerStore
	Courses  CourseStore
	Router   *Router
	Now      func() time.Time
	Log      zerolog.Logger
}

// RunCycle processes everything due right now. Only the due-items query
// error propagates; it means nothing was processed at all and the caller
// should alert.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleResult, error) {
	due, err := o.Content.ListDue(o.now())
	if err != nil {
		return nil, fmt.Errorf("list due content: %w", err)
	}

	res := &CycleResult{Due: len(due)}
	for i := range due {
		item := &due[i]

		claimed, err := o.Content.Claim(item.ID)
		if err != nil {
			o.Log.Error().Err(err).Int("content_id", item.ID).Msg("⚠️ failed to claim content item")
			res.Skipped++
			continue
		}
		if !claimed {
			// Another cycle picked this item up first.
			res.Skipped++
			continue
		}

		if err := o.deliverItem(ctx, item, res); err != nil {
			o.Log.Error().Err(err).Int("content_id", item.ID).Msg("⚠️ delivery failed, releasing item")
			if relErr := o.Content.Release(item.ID); relErr != nil {
				o.Log.Error().Err(relErr).Int("content_id", item.ID).Msg("⚠️ failed to release content item")
			}
			res.Failed++
		}
	}

	o.Log.Info().
		Int("due", res.Due).
		Int("delivered", res.Delivered).
		Int("scheduled", res.Scheduled).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("✅ delivery cycle complete")
	return res, nil
}

func (o *Orchestrator) deliverItem(ctx context.Context, item *model.ContentItem, res *CycleResult) error {
	learners, err := o.Learners.ListActiveByCourse(item.CourseID)
	if err != nil {
		return fmt.Errorf("resolve learners: %w", err)
	}
	if len(learners) == 0 {
		return fmt.Errorf("no active learners for course %d", item.CourseID)
	}

	totalDays, err := o.Courses.CountContentItems(item.CourseID)
	if err != nil {
		// The "Day N of M" framing is cosmetic; fall back to the day number.
		o.Log.Warn().Err(err).Int("course_id", item.CourseID).Msg("⚠️ failed to count course items")
		totalDays = item.DayNumber
	}

	delivered := false
	scheduled := false
	for i := range learners {
		attempts := o.Router.Dispatch(ctx, &learners[i], item, totalDays)
		for _, a := range attempts {
			if a.Success {
				delivered = true
			}
			if a.Scheduled {
				scheduled = true
			}
		}
	}

	switch {
	case delivered:
		if err := o.Content.MarkSent(item.ID, o.now()); err != nil {
			return fmt.Errorf("mark sent: %w", err)
		}
		res.Delivered++
	case scheduled:
		// The queued email leg owns the item now: the worker promotes it
		// to sent on success or releases it for the next cycle.
		res.Scheduled++
	default:
		if err := o.Content.Release(item.ID); err != nil {
			o.Log.Error().Err(err).Int("content_id", item.ID).Msg("⚠️ failed to release content item")
		}
		res.Failed++
	}
	return nil
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}
