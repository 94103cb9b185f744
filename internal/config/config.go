// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config carries everything the binaries need. Loaded from the environment
// (with .env support in each main), so senders and the orchestrator get an
// explicit struct instead of reading globals.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" env-default:":8080"`

	DBUser     string `env:"DB_USER" env-default:"postgres"`
	DBPassword string `env:"DB_PASSWORD" env-default:"postgres"`
	DBHost     string `env:"DB_HOST" env-default:"localhost"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`
	DBName     string `env:"DB_NAME" env-default:"microlearn"`

	AMQPURL string `env:"AMQP_URL"`

	GupshupAPIKey  string `env:"GUPSHUP_API_KEY"`
	GupshupSource  string `env:"GUPSHUP_SOURCE" env-default:"917834811114"`
	GupshupAppName string `env:"GUPSHUP_APP_NAME" env-default:"DHIVAAI"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	FromEmail    string `env:"FROM_EMAIL_ADDRESS" env-default:"no-reply@dhiva.ai"`

	// SendTimeout bounds every outbound transport call so one stuck send
	// cannot stall a whole cycle.
	SendTimeout time.Duration `env:"SEND_TIMEOUT" env-default:"15s"`

	// FollowUpDelay staggers the email leg behind the WhatsApp leg for
	// learners who want both channels.
	FollowUpDelay time.Duration `env:"FOLLOWUP_DELAY" env-default:"5m"`

	// DeliveryCron, when set, runs delivery cycles in-process on a cron
	// schedule in addition to the HTTP trigger.
	DeliveryCron string `env:"DELIVERY_CRON"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	return &cfg, nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}
