package models

import "time"

// Lesson is a catalog entry. (Level, OrderIndex) is unique.
type Lesson struct {
	ID          string    `json:"id" db:"id"`
	Level       Level     `json:"level" db:"level"`
	OrderIndex  int       `json:"order_index" db:"order_index"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Scenario    string    `json:"scenario" db:"scenario"`
	Content     string    `json:"-" db:"content"` // JSON encoded LessonContent
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// LessonContent is the body of a lesson
type LessonContent struct {
	Introduction string           `json:"introduction" yaml:"introduction"`
	Dialogue     []DialogueLine   `json:"dialogue" yaml:"dialogue"`
	Exercises    []Exercise       `json:"exercises" yaml:"exercises"`
	Vocabulary   []VocabularyWord `json:"vocabulary" yaml:"vocabulary"`
}

// DialogueLine is one line of a lesson dialogue
type DialogueLine struct {
	Speaker string `json:"speaker" yaml:"speaker"`
	Spanish string `json:"spanish" yaml:"spanish"`
	English string `json:"english" yaml:"english"`
}

// Exercise is a single speaking task inside a lesson
type Exercise struct {
	ID                  string   `json:"id" yaml:"id"`
	Type                string   `json:"type" yaml:"type"` // listen, shadowing, respond, translate
	Prompt              string   `json:"prompt" yaml:"prompt"`
	ExpectedResponse    string   `json:"expected_response,omitempty" yaml:"expectedResponse"`
	AcceptableResponses []string `json:"acceptable_responses,omitempty" yaml:"acceptableResponses"`
	Hint                string   `json:"hint,omitempty" yaml:"hint"`
}

// VocabularyWord is a word taught by a lesson
type VocabularyWord struct {
	Spanish       string `json:"spanish" yaml:"spanish"`
	English       string `json:"english" yaml:"english"`
	Pronunciation string `json:"pronunciation,omitempty" yaml:"pronunciation"`
}
