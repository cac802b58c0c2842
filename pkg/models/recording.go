package models

import "time"

// SpeechRecording is one analyzed utterance
type SpeechRecording struct {
	ID                 string    `json:"id" db:"id"`
	UserID             int64     `json:"user_id" db:"user_id"`
	LessonID           string    `json:"lesson_id" db:"lesson_id"`
	Transcription      string    `json:"transcription" db:"transcription"`
	ExpectedText       string    `json:"expected_text" db:"expected_text"`
	PronunciationScore int       `json:"pronunciation_score" db:"pronunciation_score"`
	GrammarScore       int       `json:"grammar_score" db:"grammar_score"`
	FluencyScore       int       `json:"fluency_score" db:"fluency_score"`
	Feedback           string    `json:"feedback" db:"feedback"` // JSON encoded analysis
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}
