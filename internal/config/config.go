package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const EnvProduction = "production"

// Config holds all application configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"https://app.bisman.io"`
	JWTSecret   string `env:"JWT_SECRET"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Storage  StorageConfig
	Billing  BillingConfig
	Email    EmailConfig
	Onboard  OnboardConfig
}

type DatabaseConfig struct {
	URL         string `env:"DATABASE_URL,required,notEmpty"`
	MaxConns    int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`
}

// RedisConfig is optional; an empty URL keeps every store in memory.
type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

type QueueConfig struct {
	PollInterval          time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	ImmediateDispatch     *bool         `env:"QUEUE_IMMEDIATE_DISPATCH"`
	TrialReminderInterval time.Duration `env:"TRIAL_REMINDER_INTERVAL" envDefault:"24h"`
}

type StorageConfig struct {
	UploadDir string `env:"UPLOAD_DIR" envDefault:"uploads"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Bucket    string `env:"S3_BUCKET" envDefault:"tenant-files"`
	UseSSL    bool   `env:"S3_USE_SSL" envDefault:"true"`
}

type BillingConfig struct {
	StripeSecretKey    string `env:"STRIPE_SECRET_KEY"`
	StripeTrialPriceID string `env:"STRIPE_TRIAL_PRICE_ID"`
}

type EmailConfig struct {
	MailgunDomain string `env:"MAILGUN_DOMAIN"`
	MailgunAPIKey string `env:"MAILGUN_API_KEY"`
	From          string `env:"EMAIL_FROM" envDefault:"BISMAN ERP <noreply@bisman.io>"`
}

type OnboardConfig struct {
	RateLimit      int           `env:"ONBOARD_RATE_LIMIT" envDefault:"10"`
	RateWindow     time.Duration `env:"ONBOARD_RATE_WINDOW" envDefault:"1h"`
	IdempotencyTTL time.Duration `env:"ONBOARD_IDEMPOTENCY_TTL" envDefault:"24h"`
	TrialPeriod    time.Duration `env:"ONBOARD_TRIAL_PERIOD" envDefault:"336h"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// ImmediateDispatch defaults to on outside production.
func (c *Config) ImmediateDispatch() bool {
	if c.Queue.ImmediateDispatch != nil {
		return *c.Queue.ImmediateDispatch
	}
	return !c.IsProduction()
}

func (c *StorageConfig) ObjectStorageEnabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != ""
}

func (c *BillingConfig) Enabled() bool {
	return c.StripeSecretKey != ""
}

func (c *EmailConfig) MailgunEnabled() bool {
	return c.MailgunDomain != "" && c.MailgunAPIKey != ""
}
