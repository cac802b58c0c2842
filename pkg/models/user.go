package models

import "time"

// User represents a Telegram user learning Spanish
type User struct {
	ID                  int64     `json:"id" db:"id"` // Telegram User ID
	Username            string    `json:"username" db:"username"`
	Name                string    `json:"name" db:"name"`
	CurrentLevel        Level     `json:"current_level" db:"current_level"`
	LearningGoal        string    `json:"learning_goal" db:"learning_goal"` // travel, work, family, personal
	NotificationEnabled bool      `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int       `json:"notification_hour" db:"notification_hour"` // 0-23
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Defaults for a newly registered user, matching the users table
const (
	DefaultNotificationHour = 9
	DefaultLearningGoal     = "personal"
)

// NewUser returns a user with the registration defaults: level A1 and a
// daily reminder at DefaultNotificationHour.
func NewUser(id int64, username, name string) *User {
	return &User{
		ID:                  id,
		Username:            username,
		Name:                name,
		CurrentLevel:        LevelA1,
		LearningGoal:        DefaultLearningGoal,
		NotificationEnabled: true,
		NotificationHour:    DefaultNotificationHour,
	}
}
