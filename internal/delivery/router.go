// internal/delivery/router.go
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhivaai/microlearn-backend/internal/channel"
	"github.com/dhivaai/microlearn-backend/internal/model"
	"github.com/dhivaai/microlearn-backend/internal/queue"
)

// Attempt is the transient outcome of one channel try within a cycle.
// Scheduled marks a leg that was queued for delayed execution instead of
// sent inline; its log entry is written when the worker runs it.
type Attempt struct {
	Channel     string
	Destination string
	Success     bool
	Scheduled   bool
	Error       string
}

// LogWriter is the append-only delivery log sink.
type LogWriter interface {
	Insert(entry *model.DeliveryLog) error
}

// Router resolves a learner and a content item into an ordered list of
// channel attempts, executes them, and records one log row per attempt.
// Every trigger path (HTTP, cron, follow-up worker, tests) goes through
// this one implementation.
type Router struct {
	Chat  channel.Sender
	Email channel.Sender
	Logs  LogWriter

	// Scheduler, when set, takes the email leg of a "both" delivery and
	// runs it after the configured stagger delay. When nil the leg is
	// sent inline with no delay.
	Scheduler queue.Scheduler

	Now func() time.Time
	Log zerolog.Logger
}

// Dispatch applies the routing policy for one (learner, content) pair.
// It never returns an error: every outcome, including missing contact
// info and unknown preferences, becomes a recorded attempt.
func (r *Router) Dispatch(ctx context.Context, learner *model.Learner, item *model.ContentItem, totalDays int) []Attempt {
	msg := RenderContent(item, totalDays)

	switch learner.Preference {
	case model.PreferenceWhatsapp:
		if learner.Phone != "" {
			return []Attempt{r.sendChat(ctx, learner, item, msg)}
		}
		// Log the missed primary channel before falling back.
		attempts := []Attempt{r.record(learner, item, Attempt{
			Channel: model.ChannelWhatsapp,
			Error:   "no phone number available",
		})}
		if learner.Email != "" {
			attempts = append(attempts, r.sendEmail(ctx, learner, item, msg))
		}
		return attempts

	case model.PreferenceEmail:
		if learner.Email != "" {
			return []Attempt{r.sendEmail(ctx, learner, item, msg)}
		}
		attempts := []Attempt{r.record(learner, item, Attempt{
			Channel: model.ChannelEmail,
			Error:   "no email address available",
		})}
		if learner.Phone != "" {
			attempts = append(attempts, r.sendChat(ctx, learner, item, msg))
		}
		return attempts

	case model.PreferenceBoth:
		// Both legs run independently; a missing contact method on one
		// never suppresses or substitutes for the other.
		attempts := []Attempt{}
		if learner.Phone != "" {
			attempts = append(attempts, r.sendChat(ctx, learner, item, msg))
		} else {
			attempts = append(attempts, r.record(learner, item, Attempt{
				Channel: model.ChannelWhatsapp,
				Error:   "no phone number available",
			}))
		}
		if learner.Email != "" {
			attempts = append(attempts, r.scheduleEmail(ctx, learner, item, msg))
		} else {
			attempts = append(attempts, r.record(learner, item, Attempt{
				Channel: model.ChannelEmail,
				Error:   "no email address available",
			}))
		}
		return attempts

	default:
		return []Attempt{r.record(learner, item, Attempt{
			Channel: model.ChannelUnknown,
			Error:   fmt.Sprintf("invalid delivery preference: %q", learner.Preference),
		})}
	}
}

// DispatchChannel sends one specific leg inline. The follow-up worker uses
// it to run a delayed email leg through the same policy and logging.
func (r *Router) DispatchChannel(ctx context.Context, learner *model.Learner, item *model.ContentItem, totalDays int, ch string) Attempt {
	msg := RenderContent(item, totalDays)

	switch ch {
	case model.ChannelWhatsapp:
		if learner.Phone == "" {
			return r.record(learner, item, Attempt{Channel: model.ChannelWhatsapp, Error: "no phone number available"})
		}
		return r.sendChat(ctx, learner, item, msg)
	case model.ChannelEmail:
		if learner.Email == "" {
			return r.record(learner, item, Attempt{Channel: model.ChannelEmail, Error: "no email address available"})
		}
		return r.sendEmail(ctx, learner, item, msg)
	default:
		return r.record(learner, item, Attempt{
			Channel: model.ChannelUnknown,
			Error:   fmt.Sprintf("invalid delivery channel: %q", ch),
		})
	}
}

func (r *Router) sendChat(ctx context.Context, learner *model.Learner, item *model.ContentItem, msg channel.Message) Attempt {
	res := r.send(ctx, r.Chat, learner.Phone, msg)
	return r.record(learner, item, Attempt{
		Channel:     model.ChannelWhatsapp,
		Destination: learner.Phone,
		Success:     res.Success,
		Error:       res.Error,
	})
}

func (r *Router) sendEmail(ctx context.Context, learner *model.Learner, item *model.ContentItem, msg channel.Message) Attempt {
	res := r.send(ctx, r.Email, learner.Email, msg)
	return r.record(learner, item, Attempt{
		Channel:     model.ChannelEmail,
		Destination: learner.Email,
		Success:     res.Success,
		Error:       res.Error,
	})
}

// scheduleEmail queues the staggered email leg. If no scheduler is wired,
// or scheduling itself fails, the leg degrades to an inline send so the
// learner still gets the lesson.
func (r *Router) scheduleEmail(ctx context.Context, learner *model.Learner, item *model.ContentItem, msg channel.Message) Attempt {
	if r.Scheduler == nil {
		return r.sendEmail(ctx, learner, item, msg)
	}

	job := queue.FollowUp{ContentID: item.ID, LearnerID: learner.ID, Channel: model.ChannelEmail}
	if err := r.Scheduler.Schedule(job); err != nil {
		r.Log.Error().Err(err).Int("content_id", item.ID).Int("learner_id", learner.ID).
			Msg("⚠️ failed to schedule email leg, sending inline")
		return r.sendEmail(ctx, learner, item, msg)
	}

	r.Log.Info().Int("content_id", item.ID).Int("learner_id", learner.ID).
		Msg("📧 email leg scheduled")
	return Attempt{Channel: model.ChannelEmail, Destination: learner.Email, Scheduled: true}
}

// send shields the router from a blowing-up adapter; a panicking attempt
// becomes a failure outcome and the remaining channels still run.
func (r *Router) send(ctx context.Context, s channel.Sender, dest string, msg channel.Message) (res channel.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = channel.Result{Success: false, Error: fmt.Sprintf("send panic: %v", rec)}
		}
	}()
	if s == nil {
		return channel.Result{Success: false, Error: "sender not configured"}
	}
	return s.Send(ctx, dest, msg)
}

// record writes the attempt's log row before returning it. A failed log
// write is reported to the console but must not block the sequence, so
// the trail can be partial but never blocks delivery.
func (r *Router) record(learner *model.Learner, item *model.ContentItem, a Attempt) Attempt {
	entry := &model.DeliveryLog{
		ContentID:   item.ID,
		LearnerID:   learner.ID,
		Channel:     a.Channel,
		Success:     a.Success,
		Error:       a.Error,
		DeliveredAt: r.now(),
	}
	if err := r.Logs.Insert(entry); err != nil {
		r.Log.Error().Err(err).
			Int("content_id", item.ID).
			Int("learner_id", learner.ID).
			Str("channel", a.Channel).
			Msg("⚠️ failed to write delivery log")
	}
	return a
}

func (r *Router) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
