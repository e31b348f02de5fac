package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// MongoDB configuration
	MongoURI      string
	MongoDatabase string

	// Crawl configuration
	CrawlLimit     int
	MaxConcurrency int
	TimeZone       string

	// Keyword lexicon (optional YAML file; built-in defaults otherwise)
	LexiconPath string

	// Notification configuration
	WebhookURL        string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Raw payload archive (optional Azure Blob Storage)
	ArchiveAccount   string
	ArchiveContainer string

	// Schedules (cron expressions with seconds field)
	CrawlSchedule       string
	DailyReportSchedule string
	WeeklySchedule      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "reputation"),

		CrawlLimit:     getIntEnv("CRAWL_LIMIT", 50),
		MaxConcurrency: getIntEnv("MAX_CONCURRENCY", 3),
		TimeZone:       getEnv("TIMEZONE", "Asia/Seoul"),

		LexiconPath: getEnv("LEXICON_PATH", ""),

		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		ArchiveAccount:   getEnv("ARCHIVE_STORAGE_ACCOUNT", ""),
		ArchiveContainer: getEnv("ARCHIVE_STORAGE_CONTAINER", "crawl-payloads"),

		// Crawl every morning, reports at end of day, weekly rollup early
		// Monday for the week that just finished.
		CrawlSchedule:       getEnv("CRAWL_SCHEDULE", "0 0 6 * * *"),
		DailyReportSchedule: getEnv("DAILY_REPORT_SCHEDULE", "0 30 23 * * *"),
		WeeklySchedule:      getEnv("WEEKLY_SCHEDULE", "0 0 2 * * MON"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}

	if c.MongoDatabase == "" {
		return fmt.Errorf("MONGO_DATABASE is required")
	}

	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be at least 1")
	}

	if c.CrawlLimit < 1 {
		return fmt.Errorf("CRAWL_LIMIT must be at least 1")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
