package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Backends selectable through DATA_BACKEND.
var validBackends = []string{"memory", "sqlite", "mongo"}

// Ranges offered by the dashboards, in days.
var validRanges = []int{7, 30, 90, 365}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	LogLevel string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath    string
	MongoURI        string
	MongoDatabase   string
	MemorySeedFile  string
	MemorySeedOwner string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Natural-language parser
	ParserBaseURL string
	ParserTimeout time.Duration

	// Analytics
	AnalyticsDefaultRange int
	AnalyticsDemoFallback bool
	AnalyticsFetchTimeout time.Duration
	MembershipCacheTTL    time.Duration

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Archive job
	ArchiveSchedule    string
	ArchiveConcurrency int

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64
	TelegramUserID   string
	TelegramGroupID  string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/pfm.db"),
		MongoURI:        getEnv("MONGODB_URI", ""),
		MongoDatabase:   getEnv("MONGODB_DB", "pfm"),
		MemorySeedFile:  getEnv("MEMORY_SEED_FILE", "./data/seed.txt"),
		MemorySeedOwner: getEnv("MEMORY_SEED_OWNER", "demo"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pfm"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "export_transactions"),

		ParserBaseURL: getEnv("PARSER_BASE_URL", ""),
		ParserTimeout: getEnvDuration("PARSER_TIMEOUT", 15*time.Second),

		AnalyticsDefaultRange: getEnvInt("ANALYTICS_DEFAULT_RANGE_DAYS", 30),
		AnalyticsDemoFallback: getEnvBool("ANALYTICS_DEMO_FALLBACK", false),
		AnalyticsFetchTimeout: getEnvDuration("ANALYTICS_FETCH_TIMEOUT", 10*time.Second),
		MembershipCacheTTL:    getEnvDuration("MEMBERSHIP_CACHE_TTL", time.Minute),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		ArchiveSchedule:    getEnv("ARCHIVE_SCHEDULE", "0 9 1 * *"),
		ArchiveConcurrency: getEnvInt("ARCHIVE_CONCURRENCY", 4),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),
		TelegramUserID:   getEnv("TELEGRAM_USER_ID", ""),
		TelegramGroupID:  getEnv("TELEGRAM_GROUP_ID", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "mongo" {
		if c.MongoURI == "" {
			errors = append(errors, "MONGODB_URI is required when using mongo backend")
		} else if u, err := url.Parse(c.MongoURI); err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI '%s': scheme must be 'mongodb' or 'mongodb+srv'", c.MongoURI))
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MongoDB database name cannot be empty when using mongo backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ParserBaseURL != "" {
		if u, err := url.Parse(c.ParserBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid parser URL '%s': must be an absolute http(s) URL", c.ParserBaseURL))
		}
	}
	if c.ParserTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid parser timeout %v: must be positive", c.ParserTimeout))
	}

	if !slices.Contains(validRanges, c.AnalyticsDefaultRange) {
		errors = append(errors, fmt.Sprintf("invalid analytics range %d: must be one of %v", c.AnalyticsDefaultRange, validRanges))
	}
	if c.AnalyticsFetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid analytics fetch timeout %v: must be at least 1 second", c.AnalyticsFetchTimeout))
	}
	if c.MembershipCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid membership cache TTL %v: must not be negative", c.MembershipCacheTTL))
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if _, err := cron.ParseStandard(c.ArchiveSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid archive schedule '%s': %v", c.ArchiveSchedule, err))
	}
	if c.ArchiveConcurrency < 1 || c.ArchiveConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid archive concurrency %d: must be between 1 and 64", c.ArchiveConcurrency))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SheetsEnabled reports whether the spreadsheet export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != "" && (c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "")
}

// ValidRange reports whether days is one of the offered analytics ranges.
func ValidRange(days int) bool {
	return slices.Contains(validRanges, days)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
