package models

import "time"

// DailyProgress is one row per user per calendar day
type DailyProgress struct {
	ID                 int64     `json:"id" db:"id"`
	UserID             int64     `json:"user_id" db:"user_id"`
	Date               time.Time `json:"date" db:"date"`
	ExercisesCompleted int       `json:"exercises_completed" db:"exercises_completed"`
	SpeakingScore      int       `json:"speaking_score" db:"speaking_score"` // last write of the day
}

// Day truncates t to local midnight
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
