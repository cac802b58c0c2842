package models

import "time"

// VocabularyItem is a word in a user's review deck, scheduled with SM-2
type VocabularyItem struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Word         string    `json:"word" db:"word"`
	Translation  string    `json:"translation" db:"translation"`
	Context      string    `json:"context" db:"context"` // lesson title the word came from
	EaseFactor   float64   `json:"ease_factor" db:"ease_factor"`
	IntervalDays int       `json:"interval_days" db:"interval_days"`
	NextReview   time.Time `json:"next_review" db:"next_review"`
	ReviewCount  int       `json:"review_count" db:"review_count"`
}
