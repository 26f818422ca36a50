package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"feeledger/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	DataDir      string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Reminders
	ReminderCron      string
	ReminderOutputDir string
	SchoolName        string

	// Default fee schedule used until an administrator sets one
	DefaultMonthlyFee    int64
	DefaultAnnualCharges int64
	DefaultAdmissionFee  int64
}

func Load() *Config {
	def := core.DefaultFeeSchedule()
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/feeledger.db"),
		DataDir:      getEnv("DATA_DIR", "data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "feeledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_records"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Fee Records"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		ReminderCron:      getEnv("REMINDER_CRON", "0 9 8 * *"),
		ReminderOutputDir: getEnv("REMINDER_OUTPUT_DIR", "reminders"),
		SchoolName:        getEnv("SCHOOL_NAME", "School Administration"),

		DefaultMonthlyFee:    getEnvInt64("DEFAULT_MONTHLY_FEE", def.Monthly.Int64()),
		DefaultAnnualCharges: getEnvInt64("DEFAULT_ANNUAL_CHARGES", def.Annual.Int64()),
		DefaultAdmissionFee:  getEnvInt64("DEFAULT_ADMISSION_FEE", def.Admission.Int64()),
	}

	return cfg
}

// DefaultSchedule returns the configured school-wide fee schedule.
func (c *Config) DefaultSchedule() core.FeeSchedule {
	return core.FeeSchedule{
		Monthly:   core.Money(c.DefaultMonthlyFee),
		Annual:    core.Money(c.DefaultAnnualCharges),
		Admission: core.Money(c.DefaultAdmissionFee),
	}
}

// Validate checks every setting and reports all problems at once.
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

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if _, err := cron.ParseStandard(c.ReminderCron); err != nil {
		errors = append(errors, fmt.Sprintf("invalid reminder cron '%s': %v", c.ReminderCron, err))
	}
	if strings.TrimSpace(c.ReminderOutputDir) == "" {
		errors = append(errors, "reminder output directory cannot be empty")
	}

	for _, fee := range []struct {
		key   string
		value int64
	}{
		{"DEFAULT_MONTHLY_FEE", c.DefaultMonthlyFee},
		{"DEFAULT_ANNUAL_CHARGES", c.DefaultAnnualCharges},
		{"DEFAULT_ADMISSION_FEE", c.DefaultAdmissionFee},
	} {
		if fee.value < 0 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must not be negative", fee.key, fee.value))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

// getEnvInt64 also accepts amounts written as "3,000" or "Rs. 3000".
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
		if m, err := core.ParseAmount(value); err == nil {
			return m.Int64()
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
