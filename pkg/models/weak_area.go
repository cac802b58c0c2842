package models

import "time"

// AreaType is the category of a recurring mistake
type AreaType string

const (
	AreaPronunciation AreaType = "pronunciation"
	AreaGrammar       AreaType = "grammar"
	AreaVocabulary    AreaType = "vocabulary"
)

// Valid reports whether t is a known area type
func (t AreaType) Valid() bool {
	switch t {
	case AreaPronunciation, AreaGrammar, AreaVocabulary:
		return true
	}
	return false
}

// WeakArea is one kind of recurring mistake for one user.
// (UserID, AreaType, SpecificItem) is unique.
type WeakArea struct {
	ID              int64     `json:"id" db:"id"`
	UserID          int64     `json:"user_id" db:"user_id"`
	AreaType        AreaType  `json:"area_type" db:"area_type"`
	SpecificItem    string    `json:"specific_item" db:"specific_item"`
	OccurrenceCount int       `json:"occurrence_count" db:"occurrence_count"`
	LastOccurred    time.Time `json:"last_occurred" db:"last_occurred"`
	Addressed       bool      `json:"addressed" db:"addressed"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
