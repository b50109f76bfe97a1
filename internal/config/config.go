package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Default roster used when ROSTER is unset. Admin first, then the tracked receivers.
const DefaultRoster = "admin@admin.com=Admin:admin,ibrar@ibrar.com=Ibrar:user,ahmad@ahmad.com=Ahmad:user"

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Record store
	DataBackend  string
	SQLiteDBPath string

	// AMQP change relay. Empty URL disables it.
	AMQPURL      string
	AMQPExchange string

	// Identity
	Roster     string
	AuthSecret string

	// Dashboard
	Timezone     string
	FeedPageSize int
	FeedSize     int

	// Bulk deletion
	PurgeBatchSize int

	// Google Sheets export
	GoogleSpreadsheetID      string
	ExportSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	ExportInterval           time.Duration
}

// RosterEntry is one parsed ROSTER item: email=Name:role.
type RosterEntry struct {
	Email string
	Name  string
	Role  string
}

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cashbook.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cashbook.changes"),

		Roster:     getEnv("ROSTER", DefaultRoster),
		AuthSecret: getEnv("AUTH_SECRET", ""),

		Timezone:     getEnv("DASHBOARD_TZ", "Local"),
		FeedPageSize: getEnvInt("FEED_PAGE_SIZE", 40),
		FeedSize:     getEnvInt("FEED_SIZE", 20),

		PurgeBatchSize: getEnvInt("PURGE_BATCH_SIZE", 450),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		ExportSheetName:          getEnv("EXPORT_SHEET_NAME", "Expenses"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		ExportInterval:           getEnvDuration("EXPORT_INTERVAL", time.Hour),
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

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
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
	}

	if _, err := ParseRoster(c.Roster); err != nil {
		errors = append(errors, err.Error())
	}
	if len(c.AuthSecret) < 16 {
		errors = append(errors, "AUTH_SECRET must be at least 16 characters")
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if c.FeedPageSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid feed page size %d: must be at least 1", c.FeedPageSize))
	}
	if c.FeedSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid feed size %d: must be at least 1", c.FeedSize))
	}

	// The provider rejects batches above 500 operations.
	if c.PurgeBatchSize < 1 || c.PurgeBatchSize > 500 {
		errors = append(errors, fmt.Sprintf("invalid purge batch size %d: must be between 1 and 500", c.PurgeBatchSize))
	}

	if c.GoogleSpreadsheetID != "" {
		if c.ExportSheetName == "" {
			errors = append(errors, "export sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.ExportInterval < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 minute", c.ExportInterval))
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Location resolves the dashboard timezone. "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ParseRoster parses "email=Name:role" items separated by commas.
func ParseRoster(raw string) ([]RosterEntry, error) {
	var entries []RosterEntry
	seen := make(map[string]bool)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		email, rest, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid roster entry '%s': expected email=Name:role", item)
		}
		name, role, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("invalid roster entry '%s': expected email=Name:role", item)
		}
		email = strings.ToLower(strings.TrimSpace(email))
		name = strings.TrimSpace(name)
		role = strings.ToLower(strings.TrimSpace(role))
		if email == "" || name == "" {
			return nil, fmt.Errorf("invalid roster entry '%s': email and name are required", item)
		}
		if role != "admin" && role != "user" {
			return nil, fmt.Errorf("invalid roster role '%s' for %s: must be admin or user", role, email)
		}
		if seen[email] {
			return nil, fmt.Errorf("duplicate roster email '%s'", email)
		}
		seen[email] = true
		entries = append(entries, RosterEntry{Email: email, Name: name, Role: role})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}
	return entries, nil
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
