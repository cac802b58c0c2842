package database

import (
	"context"
	"time"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// DailyProgressRepository keeps one counter row per user per day
type DailyProgressRepository struct {
	db *sqlx.DB
}

// NewDailyProgressRepository creates a new repository instance
func NewDailyProgressRepository(db *sqlx.DB) *DailyProgressRepository {
	return &DailyProgressRepository{db: db}
}

// RecordExercise increments the day's counter and overwrites the speaking score.
// day must already be truncated to midnight.
func (r *DailyProgressRepository) RecordExercise(ctx context.Context, userID int64, day time.Time, score int) error {
	query := r.db.Rebind(`
		INSERT INTO daily_progress (user_id, date, exercises_completed, speaking_score)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET
			exercises_completed = daily_progress.exercises_completed + 1,
			speaking_score = excluded.speaking_score
	`)
	if _, err := r.db.ExecContext(ctx, query, userID, day, score); err != nil {
		return apperr.Storage("record daily progress", err)
	}
	return nil
}

// ListSince returns the user's rows from the given day on, oldest first
func (r *DailyProgressRepository) ListSince(ctx context.Context, userID int64, since time.Time) ([]models.DailyProgress, error) {
	rows := []models.DailyProgress{}
	query := r.db.Rebind(`SELECT id, user_id, date, exercises_completed, speaking_score
		FROM daily_progress WHERE user_id = ? AND date >= ? ORDER BY date ASC`)
	if err := r.db.SelectContext(ctx, &rows, query, userID, since); err != nil {
		return nil, apperr.Storage("list daily progress", err)
	}
	return rows, nil
}
