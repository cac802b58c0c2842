package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const lessonColumns = `id, level, order_index, title, description, scenario, content, created_at`

// LessonRepository gives read access to the lesson catalog plus idempotent seeding
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new repository instance
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// FindEligible returns lessons of the level not in excludeIDs, ascending by order_index
func (r *LessonRepository) FindEligible(ctx context.Context, level models.Level, excludeIDs []string) ([]models.Lesson, error) {
	lessons := []models.Lesson{}
	var (
		query string
		args  []interface{}
		err   error
	)
	if len(excludeIDs) == 0 {
		query = `SELECT ` + lessonColumns + ` FROM lessons WHERE level = ? ORDER BY order_index ASC`
		args = []interface{}{level}
	} else {
		query, args, err = sqlx.In(`SELECT `+lessonColumns+` FROM lessons
			WHERE level = ? AND id NOT IN (?)
			ORDER BY order_index ASC`, level, excludeIDs)
		if err != nil {
			return nil, apperr.Storage("build eligible lessons query", err)
		}
	}
	if err := r.db.SelectContext(ctx, &lessons, r.db.Rebind(query), args...); err != nil {
		return nil, apperr.Storage("find eligible lessons", err)
	}
	return lessons, nil
}

// GetByID returns a lesson or NotFoundError
func (r *LessonRepository) GetByID(ctx context.Context, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	query := r.db.Rebind(`SELECT ` + lessonColumns + ` FROM lessons WHERE id = ?`)
	err := r.db.GetContext(ctx, &lesson, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("lesson", id)
	}
	if err != nil {
		return nil, apperr.Storage("get lesson", err)
	}
	return &lesson, nil
}

// ListAll returns the whole catalog in level then order_index order.
// Level codes sort lexically in CEFR order (A1 < A2 < B1 ...).
func (r *LessonRepository) ListAll(ctx context.Context) ([]models.Lesson, error) {
	lessons := []models.Lesson{}
	err := r.db.SelectContext(ctx, &lessons, `SELECT `+lessonColumns+` FROM lessons ORDER BY level ASC, order_index ASC`)
	if err != nil {
		return nil, apperr.Storage("list lessons", err)
	}
	return lessons, nil
}

// Count returns the number of lessons in the catalog
func (r *LessonRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM lessons`); err != nil {
		return 0, apperr.Storage("count lessons", err)
	}
	return n, nil
}

// Upsert inserts a lesson or updates the one at the same (level, order_index).
// It reports whether a new row was created; lesson.ID is set to the stored id.
func (r *LessonRepository) Upsert(ctx context.Context, lesson *models.Lesson) (bool, error) {
	var existingID string
	query := r.db.Rebind(`SELECT id FROM lessons WHERE level = ? AND order_index = ?`)
	err := r.db.GetContext(ctx, &existingID, query, lesson.Level, lesson.OrderIndex)
	switch {
	case err == nil:
		lesson.ID = existingID
		update := r.db.Rebind(`UPDATE lessons SET title = ?, description = ?, scenario = ?, content = ? WHERE id = ?`)
		if _, err := r.db.ExecContext(ctx, update, lesson.Title, lesson.Description, lesson.Scenario, lesson.Content, lesson.ID); err != nil {
			return false, apperr.Storage("update lesson", err)
		}
		return false, nil
	case errors.Is(err, sql.ErrNoRows):
		if lesson.ID == "" {
			lesson.ID = uuid.NewString()
		}
		if lesson.Content == "" {
			lesson.Content = "{}"
		}
		if lesson.CreatedAt.IsZero() {
			lesson.CreatedAt = time.Now().UTC()
		}
		insert := r.db.Rebind(`INSERT INTO lessons (` + lessonColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (level, order_index) DO NOTHING`)
		_, err := r.db.ExecContext(ctx, insert, lesson.ID, lesson.Level, lesson.OrderIndex, lesson.Title,
			lesson.Description, lesson.Scenario, lesson.Content, lesson.CreatedAt)
		if err != nil {
			return false, apperr.Storage("insert lesson", err)
		}
		return true, nil
	default:
		return false, apperr.Storage("lookup lesson", err)
	}
}
