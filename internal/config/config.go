// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cashops/internal/backend"
)

type Config struct {
	// HTTP server
	Port string

	// Storage backend: sqlite for authenticated deployments, local for the
	// file-backed guest mode.
	DataBackend   string
	SQLiteDBPath  string
	DataDirectory string

	// AMQP change events; empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export; empty spreadsheet id disables the endpoint.
	SheetsSpreadsheetID   string
	SheetsSheetName       string
	SheetsCredentialsJSON string
	SheetsCredentialsFile string

	// Metrics cache
	MetricsCacheSize int
	MetricsCacheTTL  time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:   getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/cashops.db"),
		DataDirectory: getEnv("DATA_DIRECTORY", "./data/guest"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cashops"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "cashops_changes"),

		SheetsSpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsSheetName:       getEnv("SHEETS_SHEET_NAME", "Transactions"),
		SheetsCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		SheetsCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		MetricsCacheSize: getEnvInt("METRICS_CACHE_SIZE", 256),
		MetricsCacheTTL:  getEnvDuration("METRICS_CACHE_TTL", 30*time.Second),
	}
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch backend.Type(c.DataBackend) {
	case backend.SQLiteStore:
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using the sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	case backend.LocalStore:
		if c.DataDirectory == "" {
			problems = append(problems, "data directory cannot be empty when using the local backend")
		} else if err := os.MkdirAll(c.DataDirectory, 0o755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDirectory, err))
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [sqlite local]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsSpreadsheetID != "" {
		if c.SheetsCredentialsJSON == "" && c.SheetsCredentialsFile == "" {
			problems = append(problems, "sheets export needs GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_APPLICATION_CREDENTIALS")
		}
		if c.SheetsCredentialsFile != "" {
			if _, err := os.Stat(c.SheetsCredentialsFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("service account file does not exist: %s", c.SheetsCredentialsFile))
			}
		}
	}

	if c.MetricsCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid metrics cache size %d: must be at least 1", c.MetricsCacheSize))
	}
	if c.MetricsCacheTTL < time.Second {
		problems = append(problems, fmt.Sprintf("invalid metrics cache TTL %v: must be at least 1 second", c.MetricsCacheTTL))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
