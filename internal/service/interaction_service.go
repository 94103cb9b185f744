// internal/service/interaction_service.go
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dhivaai/microlearn-backend/internal/channel"
	"github.com/dhivaai/microlearn-backend/internal/model"
	"github.com/dhivaai/microlearn-backend/internal/repository"
)

const helpText = "Unknown command. Available commands: PAUSE, RESUME, SUMMARY, FEEDBACK (1-5), NEXT_TOPIC"

// InteractionService routes inbound WhatsApp commands (PAUSE, RESUME,
// SUMMARY, FEEDBACK, NEXT_TOPIC) to learner-profile mutations and replies
// through the chat sender.
type InteractionService struct {
	Learners repository.LearnerRepositoryInterface
	Content  repository.ContentRepositoryInterface
	Feedback repository.FeedbackRepositoryInterface
	Chat     channel.Sender
	Log      zerolog.Logger
}

// HandleMessage resolves the sender, executes the command, and sends the
// reply back over WhatsApp. The returned string is the reply text, useful
// for the webhook response body and for tests.
func (s *InteractionService) HandleMessage(ctx context.Context, phone, text string) (string, error) {
	normalized := channel.FormatPhone(phone)

	learner, err := s.Learners.GetByPhone(normalized)
	if err != nil {
		return "", fmt.Errorf("lookup learner by phone: %w", err)
	}
	if learner == nil {
		reply := "Sorry, I couldn't find your profile. Please start over."
		s.reply(ctx, normalized, reply)
		return reply, nil
	}

	command := strings.ToUpper(strings.TrimSpace(text))
	var reply string

	switch {
	case command == "PAUSE":
		if err := s.Learners.UpdateStatus(learner.ID, model.LearnerPaused); err != nil {
			return "", fmt.Errorf("pause learner: %w", err)
		}
		reply = "✅ Your learning is paused. Text RESUME to continue."

	case command == "RESUME":
		if err := s.Learners.UpdateStatus(learner.ID, model.LearnerActive); err != nil {
			return "", fmt.Errorf("resume learner: %w", err)
		}
		reply = "🎯 You're back on track! Lessons will resume as per your schedule."

	case command == "SUMMARY":
		reply, err = s.summarize(learner)
		if err != nil {
			return "", err
		}

	case strings.HasPrefix(command, "FEEDBACK"):
		reply, err = s.recordFeedback(learner, command)
		if err != nil {
			return "", err
		}

	case command == "NEXT_TOPIC":
		reply = "🧠 New topic selection coming soon. Stay tuned!"

	default:
		reply = helpText
	}

	s.reply(ctx, normalized, reply)
	return reply, nil
}

func (s *InteractionService) summarize(learner *model.Learner) (string, error) {
	recent, err := s.Content.RecentSentByCourse(learner.CourseID, 3)
	if err != nil {
		return "", fmt.Errorf("fetch recent lessons: %w", err)
	}
	if len(recent) == 0 {
		return "No recent lessons found.", nil
	}

	lines := make([]string, len(recent))
	for i, item := range recent {
		title := item.Subject
		if title == "" {
			title = item.Intro
		}
		if len(title) > 50 {
			title = title[:50] + "..."
		}
		lines[i] = fmt.Sprintf("%d. Day %d: %s", i+1, item.DayNumber, title)
	}
	return "📚 Your recent lessons:\n" + strings.Join(lines, "\n"), nil
}

func (s *InteractionService) recordFeedback(learner *model.Learner, command string) (string, error) {
	parts := strings.Fields(command)
	if len(parts) != 2 {
		return "Please rate between 1 and 5.", nil
	}
	rating, err := strconv.Atoi(parts[1])
	if err != nil || rating < 1 || rating > 5 {
		return "Please rate between 1 and 5.", nil
	}
	if err := s.Feedback.Insert(learner.ID, learner.CourseID, rating); err != nil {
		return "", fmt.Errorf("store feedback: %w", err)
	}
	return "🙏 Thanks for your feedback!", nil
}

// reply is best-effort: an undeliverable confirmation should not turn a
// successfully executed command into a webhook error.
func (s *InteractionService) reply(ctx context.Context, phone, text string) {
	if s.Chat == nil {
		return
	}
	res := s.Chat.Send(ctx, phone, channel.Message{Text: text})
	if !res.Success {
		s.Log.Error().Str("phone", phone).Str("error", res.Error).Msg("⚠️ failed to send command reply")
	}
}
