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

const userLessonColumns = `id, user_id, lesson_id, status, score, completed_at, created_at, updated_at`

// UserLessonRepository tracks which lessons a user has opened or completed
type UserLessonRepository struct {
	db *sqlx.DB
}

// NewUserLessonRepository creates a new repository instance
func NewUserLessonRepository(db *sqlx.DB) *UserLessonRepository {
	return &UserLessonRepository{db: db}
}

// Open creates an in_progress row the first time a user opens a lesson.
// An existing row, completed or not, is left untouched.
func (r *UserLessonRepository) Open(ctx context.Context, userID int64, lessonID string, now time.Time) (*models.UserLesson, error) {
	query := r.db.Rebind(`
		INSERT INTO user_lessons (user_id, lesson_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, lesson_id) DO NOTHING
	`)
	if _, err := r.db.ExecContext(ctx, query, userID, lessonID, models.StatusInProgress, now, now); err != nil {
		return nil, apperr.Storage("open lesson", err)
	}
	return r.Get(ctx, userID, lessonID)
}

// Complete marks the lesson completed. Repeated completions overwrite score and timestamp.
func (r *UserLessonRepository) Complete(ctx context.Context, userID int64, lessonID string, score int, now time.Time) error {
	query := r.db.Rebind(`
		INSERT INTO user_lessons (user_id, lesson_id, status, score, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			status = excluded.status,
			score = excluded.score,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query, userID, lessonID, models.StatusCompleted, score, now, now, now)
	if err != nil {
		return apperr.Storage("complete lesson", err)
	}
	return nil
}

// Get returns the progress row or NotFoundError
func (r *UserLessonRepository) Get(ctx context.Context, userID int64, lessonID string) (*models.UserLesson, error) {
	var ul models.UserLesson
	query := r.db.Rebind(`SELECT ` + userLessonColumns + ` FROM user_lessons WHERE user_id = ? AND lesson_id = ?`)
	err := r.db.GetContext(ctx, &ul, query, userID, lessonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user lesson", lessonID)
	}
	if err != nil {
		return nil, apperr.Storage("get user lesson", err)
	}
	return &ul, nil
}

// ListByUser returns all progress rows of a user
func (r *UserLessonRepository) ListByUser(ctx context.Context, userID int64) ([]models.UserLesson, error) {
	rows := []models.UserLesson{}
	query := r.db.Rebind(`SELECT ` + userLessonColumns + ` FROM user_lessons WHERE user_id = ? ORDER BY created_at`)
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, apperr.Storage("list user lessons", err)
	}
	return rows, nil
}

// GetCompletedLessonIDs returns the set of lesson ids the user has completed
func (r *UserLessonRepository) GetCompletedLessonIDs(ctx context.Context, userID int64) (map[string]bool, error) {
	var ids []string
	query := r.db.Rebind(`SELECT lesson_id FROM user_lessons WHERE user_id = ? AND status = ?`)
	if err := r.db.SelectContext(ctx, &ids, query, userID, models.StatusCompleted); err != nil {
		return nil, apperr.Storage("get completed lessons", err)
	}
	completed := make(map[string]bool, len(ids))
	for _, id := range ids {
		completed[id] = true
	}
	return completed, nil
}
