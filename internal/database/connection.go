package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the database and makes sure the schema exists.
// driver is "sqlite" or "postgres"; for sqlite dsn is a file path or ":memory:".
func Open(driver, dsn string) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case "sqlite", "sqlite3":
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			// Create data directory if it doesn't exist
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		db, err = sqlx.Connect("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers; one connection also keeps
		// an in-memory database alive for the lifetime of the handle.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case "postgres":
		db, err = sqlx.Connect("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var tables = []struct {
	name string
	ddl  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			current_level TEXT NOT NULL DEFAULT 'A1',
			learning_goal TEXT NOT NULL DEFAULT 'personal',
			notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			notification_hour INTEGER NOT NULL DEFAULT 9,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
	{"lessons", `
		CREATE TABLE IF NOT EXISTS lessons (
			id TEXT PRIMARY KEY,
			level TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			scenario TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(level, order_index)
		)`},
	{"user_lessons", `
		CREATE TABLE IF NOT EXISTS user_lessons (
			id {{serial}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			lesson_id TEXT NOT NULL REFERENCES lessons(id),
			status TEXT NOT NULL DEFAULT 'not_started',
			score INTEGER,
			completed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, lesson_id)
		)`},
	{"weak_areas", `
		CREATE TABLE IF NOT EXISTS weak_areas (
			id {{serial}},
			user_id BIGINT NOT NULL,
			area_type TEXT NOT NULL,
			specific_item TEXT NOT NULL,
			occurrence_count INTEGER NOT NULL DEFAULT 1,
			last_occurred TIMESTAMP NOT NULL,
			addressed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, area_type, specific_item)
		)`},
	{"daily_progress", `
		CREATE TABLE IF NOT EXISTS daily_progress (
			id {{serial}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			date TIMESTAMP NOT NULL,
			exercises_completed INTEGER NOT NULL DEFAULT 0,
			speaking_score INTEGER NOT NULL DEFAULT 0,
			UNIQUE(user_id, date)
		)`},
	{"vocabulary_items", `
		CREATE TABLE IF NOT EXISTS vocabulary_items (
			id {{serial}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			word TEXT NOT NULL,
			translation TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
			interval_days INTEGER NOT NULL DEFAULT 1,
			next_review TIMESTAMP NOT NULL,
			review_count INTEGER NOT NULL DEFAULT 0,
			UNIQUE(user_id, word)
		)`},
	{"speech_recordings", `
		CREATE TABLE IF NOT EXISTS speech_recordings (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			lesson_id TEXT NOT NULL DEFAULT '',
			transcription TEXT NOT NULL,
			expected_text TEXT NOT NULL DEFAULT '',
			pronunciation_score INTEGER NOT NULL DEFAULT 0,
			grammar_score INTEGER NOT NULL DEFAULT 0,
			fluency_score INTEGER NOT NULL DEFAULT 0,
			feedback TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
	{"conversation_sessions", `
		CREATE TABLE IF NOT EXISTS conversation_sessions (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			scenario TEXT NOT NULL DEFAULT '',
			messages TEXT NOT NULL DEFAULT '[]',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	for _, t := range tables {
		ddl := strings.ReplaceAll(t.ddl, "{{serial}}", serial)
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}
