// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/dhivaai/microlearn-backend/internal/channel"
	"github.com/dhivaai/microlearn-backend/internal/config"
	"github.com/dhivaai/microlearn-backend/internal/controller"
	"github.com/dhivaai/microlearn-backend/internal/db"
	"github.com/dhivaai/microlearn-backend/internal/delivery"
	"github.com/dhivaai/microlearn-backend/internal/handler"
	"github.com/dhivaai/microlearn-backend/internal/queue"
	"github.com/dhivaai/microlearn-backend/internal/repository"
	"github.com/dhivaai/microlearn-backend/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	dbConn, err := db.Connect(cfg.DSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to DB")
	}
	logger.Info().Msg("✅ Connected to database")

	learnerRepo := &repository.LearnerRepository{DB: dbConn}
	contentRepo := &repository.ContentRepository{DB: dbConn}
	courseRepo := &repository.CourseRepository{DB: dbConn}
	logRepo := &repository.DeliveryLogRepository{DB: dbConn}
	feedbackRepo := &repository.FeedbackRepository{DB: dbConn}

	chat := channel.NewGupshupSender(cfg.GupshupAPIKey, cfg.GupshupSource, cfg.GupshupAppName, cfg.SendTimeout)
	email := channel.NewResendSender(cfg.ResendAPIKey, cfg.FromEmail, cfg.SendTimeout)

	router := &delivery.Router{
		Chat:  chat,
		Email: email,
		Logs:  logRepo,
		Log:   logger,
	}
	followUps := &delivery.FollowUpWorker{
		Content:  contentRepo,
		Learners: learnerRepo,
		Courses:  courseRepo,
		Router:   router,
		Log:      logger,
	}

	// Prefer the broker-backed stagger; fall back to an in-process timer
	// so local runs work without RabbitMQ.
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		scheduler, err := queue.NewAMQPScheduler(conn, cfg.FollowUpDelay)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to set up follow-up queue")
		}
		router.Scheduler = scheduler
	} else {
		logger.Info().Msg("⚠️ AMQP_URL not set, running follow-ups on an in-process timer")
		inmem := queue.NewInMemoryScheduler(cfg.FollowUpDelay, logger)
		inmem.SetHandler(func(job queue.FollowUp) error {
			return followUps.Process(context.Background(), job)
		})
		router.Scheduler = inmem
	}

	orchestrator := &delivery.Orchestrator{
		Content:  contentRepo,
		Learners: learnerRepo,
		Courses:  courseRepo,
		Router:   router,
		Log:      logger,
	}

	interactions := &service.InteractionService{
		Learners: learnerRepo,
		Content:  contentRepo,
		Feedback: feedbackRepo,
		Chat:     chat,
		Log:      logger,
	}

	deliveryHandler := &handler.DeliveryHandler{
		Orchestrator: orchestrator,
		Interactions: interactions,
		Log:          logger,
	}
	learnerController := &controller.LearnerController{
		Learners: learnerRepo,
		Content:  contentRepo,
		Logs:     logRepo,
		Courses:  courseRepo,
	}

	if cfg.DeliveryCron != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.DeliveryCron, func() {
			if _, err := orchestrator.RunCycle(context.Background()); err != nil {
				logger.Error().Err(err).Msg("❌ scheduled delivery cycle failed")
			}
		}); err != nil {
			logger.Fatal().Err(err).Str("spec", cfg.DeliveryCron).Msg("invalid DELIVERY_CRON")
		}
		c.Start()
		logger.Info().Str("spec", cfg.DeliveryCron).Msg("⏰ in-process delivery schedule enabled")
	}

	r := chi.NewRouter()

	// Delivery trigger + inbound webhook
	r.Post("/internal/deliver", deliveryHandler.TriggerDelivery)
	r.Post("/webhooks/gupshup", deliveryHandler.GupshupWebhook)

	// Dashboard / settings routes
	r.Post("/courses/{id}/learners", learnerController.UploadRoster)
	r.Get("/courses/{id}/stats", learnerController.CourseStats)
	r.Patch("/learners/{id}/settings", learnerController.UpdateSettings)

	logger.Info().Str("addr", cfg.ListenAddr).Msg("🚀 Server running")
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
