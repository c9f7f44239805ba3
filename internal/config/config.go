package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Tax & mileage
	MileageRate          decimal.Decimal // IRS-style dollars per mile
	DefaultTaxPercentage decimal.Decimal // fallback when neither gig nor user sets one

	// Result cache
	CacheMaxEntries      int
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration

	// Worker
	StatusSweepInterval time.Duration

	// Report export (Google Sheets)
	GoogleSpreadsheetID string
	GoogleReportSheet   string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gigledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gigledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "gig_events"),

		MileageRate:          getEnvDecimal("MILEAGE_RATE", "0.67"),
		DefaultTaxPercentage: getEnvDecimal("DEFAULT_TAX_PERCENTAGE", "20"),

		CacheMaxEntries:      getEnvInt("CACHE_MAX_ENTRIES", 256),
		CacheTTL:             getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Minute),

		StatusSweepInterval: getEnvDuration("STATUS_SWEEP_INTERVAL", time.Hour),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleReportSheet:   getEnv("GOOGLE_REPORT_SHEET_NAME", "Tax Report"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if c.MileageRate.IsNegative() {
		errors = append(errors, fmt.Sprintf("mileage rate cannot be negative: %s", c.MileageRate))
	}
	if c.DefaultTaxPercentage.IsNegative() || c.DefaultTaxPercentage.GreaterThan(decimal.NewFromInt(100)) {
		errors = append(errors, fmt.Sprintf("default tax percentage must be between 0 and 100: %s", c.DefaultTaxPercentage))
	}

	if c.CacheMaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("cache max entries must be positive: %d", c.CacheMaxEntries))
	}
	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("cache TTL must be positive: %s", c.CacheTTL))
	}
	if c.StatusSweepInterval <= 0 {
		errors = append(errors, fmt.Sprintf("status sweep interval must be positive: %s", c.StatusSweepInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	d, _ := decimal.NewFromString(defaultValue)
	return d
}
