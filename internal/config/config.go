package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Meedux/ai-meal/internal/domain/models"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMongoDB = "mongodb"
	StoreMemory  = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	AI        AIConfig
	Goals     models.GoalTarget
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver     string
	URI        string
	DBName     string
	Collection string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
}

// Enabled reports whether the chat channel is configured.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether daily totals are exported.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// Location resolves Timezone. Validate guarantees it loads.
func (c ReportingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AIConfig holds settings for LLM providers.
type AIConfig struct {
	AnthropicKey   string
	AnthropicModel string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	defaults := models.DefaultGoal()
	goals, err := loadGoals(defaults)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getenvWithDefault("STORE_DRIVER", StoreMongoDB)),
			URI:        getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName:     getenvWithDefault("MONGODB_DB_NAME", "mealplanner"),
			Collection: getenvWithDefault("MONGODB_COLLECTION", "documents"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_ID"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("DIGEST_CRON_SCHEDULE", "0 21 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "UTC"),
		},
		AI: AIConfig{
			AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel: os.Getenv("ANTHROPIC_MODEL"),
		},
		Goals: goals,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreMongoDB:
		if c.Store.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.Store.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
		if c.Store.Collection == "" {
			return errors.New("MONGODB_COLLECTION must be provided")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongoDB, StoreMemory, c.Store.Driver)
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.VerifyToken == "":
			return errors.New("META_VERIFY_TOKEN must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_ID must be provided together")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("DIGEST_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a known zone: %w", c.Reporting.Timezone, err)
	}

	if err := c.Goals.Validate(); err != nil {
		return fmt.Errorf("DEFAULT_GOAL_*: %w", err)
	}

	return nil
}

func loadGoals(defaults models.GoalTarget) (models.GoalTarget, error) {
	var err error
	goals := defaults
	if goals.Calories, err = getenvFloat("DEFAULT_GOAL_CALORIES", defaults.Calories); err != nil {
		return models.GoalTarget{}, err
	}
	if goals.Protein, err = getenvFloat("DEFAULT_GOAL_PROTEIN", defaults.Protein); err != nil {
		return models.GoalTarget{}, err
	}
	if goals.Carbs, err = getenvFloat("DEFAULT_GOAL_CARBS", defaults.Carbs); err != nil {
		return models.GoalTarget{}, err
	}
	if goals.Fat, err = getenvFloat("DEFAULT_GOAL_FAT", defaults.Fat); err != nil {
		return models.GoalTarget{}, err
	}
	return goals, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return value, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
