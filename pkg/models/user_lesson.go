package models

import "time"

// LessonStatus is the state of a lesson for one user
type LessonStatus string

const (
	StatusNotStarted LessonStatus = "not_started"
	StatusInProgress LessonStatus = "in_progress"
	StatusCompleted  LessonStatus = "completed"
)

// UserLesson joins a user and a lesson. (UserID, LessonID) is unique.
type UserLesson struct {
	ID          int64        `json:"id" db:"id"`
	UserID      int64        `json:"user_id" db:"user_id"`
	LessonID    string       `json:"lesson_id" db:"lesson_id"`
	Status      LessonStatus `json:"status" db:"status"`
	Score       *int         `json:"score,omitempty" db:"score"`
	CompletedAt *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}
