// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/dhivaai/microlearn-backend/internal/channel"
	"github.com/dhivaai/microlearn-backend/internal/config"
	"github.com/dhivaai/microlearn-backend/internal/db"
	"github.com/dhivaai/microlearn-backend/internal/delivery"
	"github.com/dhivaai/microlearn-backend/internal/queue"
	"github.com/dhivaai/microlearn-backend/internal/repository"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "worker").Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.AMQPURL == "" {
		logger.Fatal().Msg("AMQP_URL is required for the follow-up worker")
	}

	dbConn, err := db.Connect(cfg.DSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to DB")
	}

	learnerRepo := &repository.LearnerRepository{DB: dbConn}
	contentRepo := &repository.ContentRepository{DB: dbConn}
	courseRepo := &repository.CourseRepository{DB: dbConn}
	logRepo := &repository.DeliveryLogRepository{DB: dbConn}

	router := &delivery.Router{
		Chat:  channel.NewGupshupSender(cfg.GupshupAPIKey, cfg.GupshupSource, cfg.GupshupAppName, cfg.SendTimeout),
		Email: channel.NewResendSender(cfg.ResendAPIKey, cfg.FromEmail, cfg.SendTimeout),
		Logs:  logRepo,
		Log:   logger,
	}
	worker := &delivery.FollowUpWorker{
		Content:  contentRepo,
		Learners: learnerRepo,
		Courses:  courseRepo,
		Router:   router,
		Log:      logger,
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open a channel")
	}
	defer ch.Close()

	if err := queue.DeclareFollowUpQueues(ch, cfg.FollowUpDelay); err != nil {
		logger.Fatal().Err(err).Msg("failed to declare queues")
	}

	msgs, err := ch.Consume(
		queue.FollowUpQueue,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register consumer")
	}

	logger.Info().Msg("👷 Follow-up worker running, waiting for messages...")

	for d := range msgs {
		var job queue.FollowUp
		if err := json.Unmarshal(d.Body, &job); err != nil {
			logger.Error().Err(err).Msg("invalid job, dropping")
			d.Ack(false)
			continue
		}

		if err := worker.Process(context.Background(), job); err != nil {
			logger.Error().Err(err).Int("content_id", job.ContentID).Msg("follow-up failed")
			// One requeue covers transient lookup failures.
			if !d.Redelivered {
				d.Nack(false, true)
				continue
			}
			// Giving up on the job; hand the claim back so the next cycle
			// retries the item. Release is a no-op unless it is still claimed.
			if err := contentRepo.Release(job.ContentID); err != nil {
				logger.Error().Err(err).Int("content_id", job.ContentID).Msg("failed to release content item")
			}
		}

		d.Ack(false)
	}
}
