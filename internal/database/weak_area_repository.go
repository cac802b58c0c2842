package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
	"github.com/jmoiron/sqlx"
)

const weakAreaColumns = `id, user_id, area_type, specific_item, occurrence_count, last_occurred, addressed, created_at`

// WeakAreaRepository handles database operations for weak areas
type WeakAreaRepository struct {
	db *sqlx.DB
}

// NewWeakAreaRepository creates a new repository instance
func NewWeakAreaRepository(db *sqlx.DB) *WeakAreaRepository {
	return &WeakAreaRepository{db: db}
}

// Upsert inserts a new weak area or bumps the counter of the existing one.
// The insert-or-increment is a single statement so the UNIQUE constraint on
// (user_id, area_type, specific_item) serializes concurrent callers.
func (r *WeakAreaRepository) Upsert(ctx context.Context, userID int64, areaType models.AreaType, item string, now time.Time) (*models.WeakArea, error) {
	query := r.db.Rebind(`
		INSERT INTO weak_areas (
			user_id, area_type, specific_item, occurrence_count, last_occurred, addressed, created_at
		) VALUES (?, ?, ?, 1, ?, FALSE, ?)
		ON CONFLICT (user_id, area_type, specific_item) DO UPDATE SET
			occurrence_count = weak_areas.occurrence_count + 1,
			last_occurred = excluded.last_occurred
	`)
	if _, err := r.db.ExecContext(ctx, query, userID, areaType, item, now, now); err != nil {
		return nil, apperr.Storage("upsert weak area", err)
	}

	// SQLite can't be trusted with column types on RETURNING rows, read it back
	wa, err := r.Get(ctx, userID, areaType, item)
	if err != nil {
		return nil, err
	}
	if wa == nil {
		return nil, &apperr.InvariantViolation{What: fmt.Sprintf("weak area (%d, %s, %q) vanished after upsert", userID, areaType, item)}
	}
	return wa, nil
}

// Get returns the weak area for the key, or nil if it doesn't exist
func (r *WeakAreaRepository) Get(ctx context.Context, userID int64, areaType models.AreaType, item string) (*models.WeakArea, error) {
	var rows []models.WeakArea
	query := r.db.Rebind(`SELECT ` + weakAreaColumns + ` FROM weak_areas
		WHERE user_id = ? AND area_type = ? AND specific_item = ?`)
	if err := r.db.SelectContext(ctx, &rows, query, userID, areaType, item); err != nil {
		return nil, apperr.Storage("get weak area", err)
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, &apperr.InvariantViolation{What: fmt.Sprintf("%d weak area rows for (%d, %s, %q)", len(rows), userID, areaType, item)}
	}
}

// GetByID returns one of the user's weak areas or NotFoundError
func (r *WeakAreaRepository) GetByID(ctx context.Context, userID, id int64) (*models.WeakArea, error) {
	var rows []models.WeakArea
	query := r.db.Rebind(`SELECT ` + weakAreaColumns + ` FROM weak_areas WHERE id = ? AND user_id = ?`)
	if err := r.db.SelectContext(ctx, &rows, query, id, userID); err != nil {
		return nil, apperr.Storage("get weak area", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("weak area", id)
	}
	return &rows[0], nil
}

// QueryTop returns outstanding weak areas, most frequent first, most recent on ties
func (r *WeakAreaRepository) QueryTop(ctx context.Context, userID int64, limit int) ([]models.WeakArea, error) {
	rows := []models.WeakArea{}
	if limit <= 0 {
		return rows, nil
	}
	query := r.db.Rebind(`SELECT ` + weakAreaColumns + ` FROM weak_areas
		WHERE user_id = ? AND addressed = FALSE
		ORDER BY occurrence_count DESC, last_occurred DESC, id DESC
		LIMIT ?`)
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, apperr.Storage("query top weak areas", err)
	}
	return rows, nil
}

// MarkAddressed flags the weak area as addressed. Unknown keys are ignored.
func (r *WeakAreaRepository) MarkAddressed(ctx context.Context, userID int64, areaType models.AreaType, item string) error {
	query := r.db.Rebind(`UPDATE weak_areas SET addressed = TRUE
		WHERE user_id = ? AND area_type = ? AND specific_item = ?`)
	result, err := r.db.ExecContext(ctx, query, userID, areaType, item)
	if err != nil {
		return apperr.Storage("mark weak area addressed", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperr.Storage("mark weak area addressed", err)
	}
	if rows > 1 {
		return &apperr.InvariantViolation{What: fmt.Sprintf("%d weak area rows updated for (%d, %s, %q)", rows, userID, areaType, item)}
	}
	return nil
}

// CountByType returns the number of outstanding weak areas per category
func (r *WeakAreaRepository) CountByType(ctx context.Context, userID int64) (map[models.AreaType]int, error) {
	var rows []struct {
		AreaType models.AreaType `db:"area_type"`
		Count    int             `db:"cnt"`
	}
	query := r.db.Rebind(`SELECT area_type, COUNT(*) AS cnt FROM weak_areas
		WHERE user_id = ? AND addressed = FALSE
		GROUP BY area_type`)
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, apperr.Storage("count weak areas", err)
	}
	counts := make(map[models.AreaType]int, len(rows))
	for _, row := range rows {
		counts[row.AreaType] = row.Count
	}
	return counts, nil
}
