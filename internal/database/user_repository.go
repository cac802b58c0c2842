package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, username, name, current_level, learning_goal, notification_enabled, notification_hour, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Register inserts the user or refreshes its Telegram names.
// Level and notification preferences of an existing user are kept.
// Build new users with models.NewUser so the reminder defaults are set.
func (r *UserRepository) Register(ctx context.Context, user *models.User) error {
	if user.CurrentLevel == "" {
		user.CurrentLevel = models.LevelA1
	}
	if user.LearningGoal == "" {
		user.LearningGoal = models.DefaultLearningGoal
	}
	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO users (
			id, username, name, current_level, learning_goal,
			notification_enabled, notification_hour, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			name = excluded.name,
			updated_at = excluded.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Name, user.CurrentLevel,
		user.LearningGoal, user.NotificationEnabled, user.NotificationHour, now, now)
	if err != nil {
		return apperr.Storage("register user", err)
	}
	return nil
}

// GetByID returns a user or NotFoundError
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, apperr.Storage("get user", err)
	}
	return &user, nil
}

// GetCurrentLevel returns the user's proficiency level
func (r *UserRepository) GetCurrentLevel(ctx context.Context, userID int64) (models.Level, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.CurrentLevel, nil
}

// SetLevel changes the user's proficiency level
func (r *UserRepository) SetLevel(ctx context.Context, userID int64, level models.Level) error {
	if !level.Valid() {
		return apperr.NotFound("level", level)
	}
	return r.update(ctx, "set level", `UPDATE users SET current_level = ?, updated_at = ? WHERE id = ?`, userID, level)
}

// SetNotificationEnabled toggles reminders
func (r *UserRepository) SetNotificationEnabled(ctx context.Context, userID int64, enabled bool) error {
	return r.update(ctx, "set notifications", `UPDATE users SET notification_enabled = ?, updated_at = ? WHERE id = ?`, userID, enabled)
}

// SetNotificationHour changes the hour reminders are sent at
func (r *UserRepository) SetNotificationHour(ctx context.Context, userID int64, hour int) error {
	return r.update(ctx, "set notification hour", `UPDATE users SET notification_hour = ?, updated_at = ? WHERE id = ?`, userID, hour)
}

func (r *UserRepository) update(ctx context.Context, op, query string, userID int64, value interface{}) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), value, time.Now().UTC(), userID)
	if err != nil {
		return apperr.Storage(op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperr.Storage(op, err)
	}
	if rows == 0 {
		return apperr.NotFound("user", userID)
	}
	return nil
}

// GetUsersForNotification returns users who have notifications enabled for the hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	users := []models.User{}
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users
		WHERE notification_enabled = TRUE AND notification_hour = ?
		ORDER BY id`)
	if err := r.db.SelectContext(ctx, &users, query, hour); err != nil {
		return nil, apperr.Storage("get users for notification", err)
	}
	return users, nil
}
