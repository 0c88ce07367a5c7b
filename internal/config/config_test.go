package config_test

import (
	"os"
	"path/filepath"
	"testing"
	_ "time/tzdata"

	"github.com/Meedux/ai-meal/internal/config"
	"github.com/Meedux/ai-meal/internal/domain/models"
)

var managedKeys = []string{
	"APP_PORT", "LOG_LEVEL", "TIMEZONE", "STORE_DRIVER", "MONGODB_URI", "MONGODB_DB_NAME",
	"MONGODB_COLLECTION", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "WHATSAPP_TOKEN",
	"WHATSAPP_PHONE_NUMBER_ID", "META_VERIFY_TOKEN", "WHATSAPP_BASE_URL", "WHATSAPP_API_VERSION",
	"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_ID", "DIGEST_CRON_SCHEDULE",
	"DEFAULT_GOAL_CALORIES", "DEFAULT_GOAL_PROTEIN", "DEFAULT_GOAL_CARBS", "DEFAULT_GOAL_FAT",
}

// clearEnv blanks every key Load reads; t.Setenv restores them afterwards.
// Tests using it cannot run in parallel.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedKeys {
		t.Setenv(key, "")
	}
}

func emptyEnvFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("# empty\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(emptyEnvFile(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Server.LogLevel != "info" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Store.Driver != config.StoreMongoDB || cfg.Store.DBName != "mealplanner" || cfg.Store.Collection != "documents" {
		t.Fatalf("unexpected store config %+v", cfg.Store)
	}
	if cfg.Reporting.CronSchedule != "0 21 * * *" || cfg.Reporting.Location().String() != "UTC" {
		t.Fatalf("unexpected reporting config %+v", cfg.Reporting)
	}
	if cfg.Goals != models.DefaultGoal() {
		t.Fatalf("expected default goals, got %+v", cfg.Goals)
	}
	if cfg.WhatsApp.Enabled() || cfg.Sheets.Enabled() {
		t.Fatalf("optional integrations should be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("TIMEZONE", "Europe/Paris")
	t.Setenv("DEFAULT_GOAL_CALORIES", "2400")
	t.Setenv("DEFAULT_GOAL_FAT", "80.5")
	t.Setenv("WHATSAPP_TOKEN", "token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123")
	t.Setenv("META_VERIFY_TOKEN", "verify")

	cfg, err := config.Load(emptyEnvFile(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != config.StoreMemory {
		t.Fatalf("expected memory driver, got %q", cfg.Store.Driver)
	}
	if cfg.Reporting.Location().String() != "Europe/Paris" {
		t.Fatalf("unexpected location %s", cfg.Reporting.Location())
	}
	if cfg.Goals.Calories != 2400 || cfg.Goals.Fat != 80.5 || cfg.Goals.Protein != 150 {
		t.Fatalf("unexpected goals %+v", cfg.Goals)
	}
	if !cfg.WhatsApp.Enabled() {
		t.Fatalf("whatsapp should be enabled")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":        {"STORE_DRIVER": "postgres"},
		"timezone":      {"TIMEZONE": "Mars/Olympus"},
		"goal":          {"DEFAULT_GOAL_PROTEIN": "-1"},
		"goal number":   {"DEFAULT_GOAL_CARBS": "lots"},
		"whatsapp":      {"WHATSAPP_TOKEN": "token"},
		"sheets halves": {"GOOGLE_SHEET_ID": "sheet"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range env {
				t.Setenv(key, value)
			}
			if _, err := config.Load(emptyEnvFile(t)); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even when
	// empty, so unset the one the file provides.
	os.Unsetenv("APP_PORT")
	path := filepath.Join(t.TempDir(), "app.env")
	if err := os.WriteFile(path, []byte("APP_PORT=9090\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("APP_PORT") })

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port from env file, got %q", cfg.Server.Port)
	}
}
