package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	minIMAPTimeout = 5 * time.Second
	maxIMAPTimeout = 120 * time.Second
)

type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	Environment     string
	LogLevel        string
	ShutdownTimeout int // seconds
	AdminAPIKey     string

	// Sweeps
	FollowupInterval    time.Duration
	IngestionInterval   time.Duration
	SweepConcurrency    int
	CheckNowTimeout     time.Duration
	CheckNowMaxMessages int
	IMAPHost            string
	IMAPTimeout         time.Duration

	// Providers
	OpenRouterAPIKey  string
	OpenRouterModel   string
	GmailClientID     string
	GmailClientSecret string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SenderEmail       string
	SenderName        string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	TwilioClientSlug  string
	TwilioWebhookURL  string

	// Optional infrastructure
	RedisURL     string
	AMQPURL      string
	AMQPExchange string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		DatabaseURL:     dbURL,
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
		AdminAPIKey:     os.Getenv("ADMIN_API_KEY"),

		FollowupInterval:    getEnvAsDuration("FOLLOWUP_INTERVAL", time.Hour),
		IngestionInterval:   getEnvAsDuration("INGESTION_INTERVAL", 2*time.Minute),
		SweepConcurrency:    getEnvAsInt("SWEEP_CONCURRENCY", 4),
		CheckNowTimeout:     time.Duration(getEnvAsInt("CHECK_NOW_TIMEOUT", 20)) * time.Second,
		CheckNowMaxMessages: getEnvAsInt("CHECK_NOW_MAX_MESSAGES", 20),
		IMAPHost:            getEnv("IMAP_HOST", "imap.gmail.com"),
		IMAPTimeout:         clampIMAPTimeout(time.Duration(getEnvAsInt("IMAP_TIMEOUT", 15)) * time.Second),

		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		GmailClientID:     os.Getenv("GMAIL_CLIENT_ID"),
		GmailClientSecret: os.Getenv("GMAIL_CLIENT_SECRET"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		SenderEmail:       getEnv("SENDER_EMAIL", "onboarding@leadloop.dev"),
		SenderName:        getEnv("SENDER_NAME", "Your Business"),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		TwilioClientSlug:  getEnv("TWILIO_CLIENT_SLUG", "demo"),
		TwilioWebhookURL:  os.Getenv("TWILIO_WEBHOOK_URL"),

		RedisURL:     os.Getenv("REDIS_URL"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "leadloop.events"),
	}

	if cfg.SweepConcurrency < 1 {
		cfg.SweepConcurrency = 1
	}
	if cfg.FollowupInterval <= 0 {
		cfg.FollowupInterval = time.Hour
	}
	if cfg.IngestionInterval <= 0 {
		cfg.IngestionInterval = 2 * time.Minute
	}

	cfg.warnMissing()
	return cfg, nil
}

// warnMissing reports providers that will run in degraded mode
func (c *Config) warnMissing() {
	if c.OpenRouterAPIKey == "" {
		fmt.Println("Warning: OPENROUTER_API_KEY not set, email leads will not be classified and follow-ups use templates")
	}
	if c.SMTPHost == "" {
		fmt.Println("Warning: SMTP_HOST not set, emails will not be sent")
	}
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioPhoneNumber == "" {
		fmt.Println("Warning: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN or TWILIO_PHONE_NUMBER not set, SMS will not be sent")
	}
	if c.GmailClientID == "" || c.GmailClientSecret == "" {
		fmt.Println("Warning: GMAIL_CLIENT_ID or GMAIL_CLIENT_SECRET not set, Gmail API mailboxes will not work")
	}
	if c.AdminAPIKey == "" {
		fmt.Println("Warning: ADMIN_API_KEY not set, admin routes are disabled")
	}
}

func clampIMAPTimeout(d time.Duration) time.Duration {
	if d < minIMAPTimeout {
		return minIMAPTimeout
	}
	if d > maxIMAPTimeout {
		return maxIMAPTimeout
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
