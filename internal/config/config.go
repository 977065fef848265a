package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the planner.
type Config struct {
	DatabaseURL  string
	SeedDemoData bool
	// MaintenanceInterval of 0 disables the periodic maintenance job.
	MaintenanceInterval time.Duration
}

// Load reads configuration from a .env file (if present) and environment
// variables, with sane defaults.
func Load() (Config, error) {
	// Missing .env is fine; plain env vars still apply.
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SeedDemoData: parseBool(strings.TrimSpace(os.Getenv("SEED_DEMO_DATA"))),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "study_planner.db"
	}

	raw := strings.TrimSpace(os.Getenv("MAINTENANCE_INTERVAL_HOURS"))
	if raw == "" {
		cfg.MaintenanceInterval = 24 * time.Hour
	} else {
		cfg.MaintenanceInterval = parseInterval(raw)
	}

	return cfg, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInterval(raw string) time.Duration {
	if raw == "" || raw == "0" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours < 0 {
		return 0
	}
	return hours
}
