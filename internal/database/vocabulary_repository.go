package database

import (
	"context"
	"strings"
	"time"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
	"github.com/jmoiron/sqlx"
)

const vocabularyColumns = `id, user_id, word, translation, context, ease_factor, interval_days, next_review, review_count`

// VocabularyRepository stores the per-user review deck
type VocabularyRepository struct {
	db *sqlx.DB
}

// NewVocabularyRepository creates a new repository instance
func NewVocabularyRepository(db *sqlx.DB) *VocabularyRepository {
	return &VocabularyRepository{db: db}
}

// AddWords puts lesson words into the deck, due immediately. Known words are skipped.
// It returns the number of words actually added.
func (r *VocabularyRepository) AddWords(ctx context.Context, userID int64, words []models.VocabularyWord, source string, now time.Time, easeFactor float64) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, apperr.Storage("begin add words", err)
	}
	query := tx.Rebind(`
		INSERT INTO vocabulary_items (user_id, word, translation, context, ease_factor, interval_days, next_review, review_count)
		VALUES (?, ?, ?, ?, ?, 1, ?, 0)
		ON CONFLICT (user_id, word) DO NOTHING
	`)
	added := 0
	for _, w := range words {
		word := strings.TrimSpace(w.Spanish)
		if word == "" {
			continue
		}
		result, err := tx.ExecContext(ctx, query, userID, word, strings.TrimSpace(w.English), source, easeFactor, now)
		if err != nil {
			tx.Rollback()
			return 0, apperr.Storage("add word", err)
		}
		if n, err := result.RowsAffected(); err == nil {
			added += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.Storage("commit add words", err)
	}
	return added, nil
}

// ListByUser returns the whole deck of a user
func (r *VocabularyRepository) ListByUser(ctx context.Context, userID int64) ([]models.VocabularyItem, error) {
	items := []models.VocabularyItem{}
	query := r.db.Rebind(`SELECT ` + vocabularyColumns + ` FROM vocabulary_items WHERE user_id = ? ORDER BY next_review ASC`)
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, apperr.Storage("list vocabulary", err)
	}
	return items, nil
}

// GetByID returns one item of the user's deck
func (r *VocabularyRepository) GetByID(ctx context.Context, userID, id int64) (*models.VocabularyItem, error) {
	var items []models.VocabularyItem
	query := r.db.Rebind(`SELECT ` + vocabularyColumns + ` FROM vocabulary_items WHERE id = ? AND user_id = ?`)
	if err := r.db.SelectContext(ctx, &items, query, id, userID); err != nil {
		return nil, apperr.Storage("get vocabulary item", err)
	}
	if len(items) == 0 {
		return nil, apperr.NotFound("vocabulary item", id)
	}
	return &items[0], nil
}

// UpdateSchedule saves the SM-2 state of an item
func (r *VocabularyRepository) UpdateSchedule(ctx context.Context, item *models.VocabularyItem) error {
	query := r.db.Rebind(`UPDATE vocabulary_items SET
			ease_factor = ?,
			interval_days = ?,
			next_review = ?,
			review_count = ?
		WHERE id = ? AND user_id = ?`)
	result, err := r.db.ExecContext(ctx, query, item.EaseFactor, item.IntervalDays, item.NextReview, item.ReviewCount, item.ID, item.UserID)
	if err != nil {
		return apperr.Storage("update vocabulary item", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperr.Storage("update vocabulary item", err)
	}
	if rows == 0 {
		return apperr.NotFound("vocabulary item", item.ID)
	}
	return nil
}
