package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default notification window, local hours
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 21
)

// Config holds everything main needs to wire the application
type Config struct {
	Env string

	TelegramToken string
	AdminUserIDs  map[int64]bool

	DBType      string // sqlite or postgres
	DatabaseURL string // postgres DSN
	SQLitePath  string

	OpenAIKey       string
	ChatModel       string
	TranscribeModel string

	SchedulerEnabled      bool
	NotificationStartHour int
	NotificationEndHour   int

	CatalogSeedFile string
}

// Load reads an optional .env file and then the process environment
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// Missing .env is fine, variables may come from the environment
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:                   envOrDefault("APP_ENV", "development"),
		TelegramToken:         strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		DBType:                strings.ToLower(envOrDefault("DB_TYPE", "sqlite")),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SQLitePath:            envOrDefault("SQLITE_PATH", "data/hablabot.db"),
		OpenAIKey:             strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		ChatModel:             envOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		TranscribeModel:       envOrDefault("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
		SchedulerEnabled:      os.Getenv("ENABLE_SCHEDULER") != "false",
		NotificationStartHour: hourOrDefault("NOTIFICATION_START_HOUR", DefaultNotificationStartHour),
		NotificationEndHour:   hourOrDefault("NOTIFICATION_END_HOUR", DefaultNotificationEndHour),
		CatalogSeedFile:       os.Getenv("CATALOG_SEED_FILE"),
		AdminUserIDs:          parseIDs(os.Getenv("ADMIN_USER_IDS")),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	switch cfg.DBType {
	case "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_TYPE=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", cfg.DBType)
	}
	return cfg, nil
}

// DSN returns the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBType == "postgres" {
		return c.DatabaseURL
	}
	return c.SQLitePath
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func hourOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	h, err := strconv.Atoi(raw)
	if err != nil || h < 0 || h > 23 {
		return fallback
	}
	return h
}

func parseIDs(raw string) map[int64]bool {
	ids := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids[id] = true
	}
	return ids
}
