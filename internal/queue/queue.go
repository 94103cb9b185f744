package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Queue names. The wait queue has no consumers: messages sit there until
// their TTL expires and dead-letter into the work queue that cmd/worker
// consumes. That implements the delivery stagger without an in-process
// sleep, so a bounded-lifetime runtime can still honor a 5 minute delay.
const (
	FollowUpQueue     = "delivery_followups"
	FollowUpWaitQueue = "delivery_followups_wait"
)

// FollowUp is the delayed second leg of a both-preference delivery:
// the email send staggered behind the WhatsApp leg.
type FollowUp struct {
	ContentID int    `json:"content_id"`
	LearnerID int    `json:"learner_id"`
	Channel   string `json:"channel"`
}

// Scheduler enqueues a follow-up for execution after the configured delay.
type Scheduler interface {
	Schedule(job FollowUp) error
}

// DeclareFollowUpQueues sets up both queues. Called by the publisher and
// the worker so either side can start first.
func DeclareFollowUpQueues(ch *amqp.Channel, delay time.Duration) error {
	if _, err := ch.QueueDeclare(FollowUpQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", FollowUpQueue, err)
	}
	_, err := ch.QueueDeclare(FollowUpWaitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": FollowUpQueue,
		"x-message-ttl":             int32(delay / time.Millisecond),
	})
	if err != nil {
		return fmt.Errorf("declare %s: %w", FollowUpWaitQueue, err)
	}
	return nil
}

// AMQPScheduler publishes follow-ups into the TTL wait queue.
type AMQPScheduler struct {
	ch *amqp.Channel
}

func NewAMQPScheduler(conn *amqp.Connection, delay time.Duration) (*AMQPScheduler, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := DeclareFollowUpQueues(ch, delay); err != nil {
		return nil, err
	}
	return &AMQPScheduler{ch: ch}, nil
}

func (s *AMQPScheduler) Schedule(job FollowUp) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.ch.Publish("", FollowUpWaitQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// InMemoryScheduler runs follow-ups on a timer inside the current process.
// Used by tests and single-binary deployments without a broker; the delay
// is honored but jobs do not survive a restart.
type InMemoryScheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	handler func(FollowUp) error
	log     zerolog.Logger
}

func NewInMemoryScheduler(delay time.Duration, log zerolog.Logger) *InMemoryScheduler {
	return &InMemoryScheduler{delay: delay, log: log}
}

// SetHandler registers the function each expired follow-up runs through.
func (s *InMemoryScheduler) SetHandler(handler func(FollowUp) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

func (s *InMemoryScheduler) Schedule(job FollowUp) error {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()

	if handler == nil {
		return fmt.Errorf("no handler registered for follow-ups")
	}

	time.AfterFunc(s.delay, func() {
		if err := handler(job); err != nil {
			s.log.Error().Err(err).
				Int("content_id", job.ContentID).
				Int("learner_id", job.LearnerID).
				Msg("⚠️ follow-up job failed")
		}
	})
	return nil
}

var (
	_ Scheduler = (*AMQPScheduler)(nil)
	_ Scheduler = (*InMemoryScheduler)(nil)
)
