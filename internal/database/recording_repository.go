package database

import (
	"context"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// RecordingRepository stores analyzed speech recordings
type RecordingRepository struct {
	db *sqlx.DB
}

// NewRecordingRepository creates a new repository instance
func NewRecordingRepository(db *sqlx.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Create inserts a recording
func (r *RecordingRepository) Create(ctx context.Context, rec *models.SpeechRecording) error {
	query := r.db.Rebind(`
		INSERT INTO speech_recordings (
			id, user_id, lesson_id, transcription, expected_text,
			pronunciation_score, grammar_score, fluency_score, feedback, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query, rec.ID, rec.UserID, rec.LessonID, rec.Transcription, rec.ExpectedText,
		rec.PronunciationScore, rec.GrammarScore, rec.FluencyScore, rec.Feedback, rec.CreatedAt)
	if err != nil {
		return apperr.Storage("create recording", err)
	}
	return nil
}

// ListRecent returns the latest recordings of a user
func (r *RecordingRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]models.SpeechRecording, error) {
	recs := []models.SpeechRecording{}
	query := r.db.Rebind(`SELECT id, user_id, lesson_id, transcription, expected_text,
			pronunciation_score, grammar_score, fluency_score, feedback, created_at
		FROM speech_recordings WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &recs, query, userID, limit); err != nil {
		return nil, apperr.Storage("list recordings", err)
	}
	return recs, nil
}
