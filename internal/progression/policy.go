// Package progression decides which lesson a learner should take next.
package progression

import (
	"context"
	"sort"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
)

// LessonCatalog returns the lessons of one level that are not in excludeIDs,
// ascending by order index.
type LessonCatalog interface {
	FindEligible(ctx context.Context, level models.Level, excludeIDs []string) ([]models.Lesson, error)
}

// Policy walks the catalog from the learner's level upwards.
// It never goes back to a lower level and ignores weak areas.
type Policy struct {
	catalog LessonCatalog
}

// NewPolicy creates a policy over a lesson catalog
func NewPolicy(catalog LessonCatalog) *Policy {
	return &Policy{catalog: catalog}
}

// NextLesson returns the first uncompleted lesson at currentLevel, or at the
// nearest higher level that still has one. A nil lesson with a nil error means
// the catalog is exhausted.
func (p *Policy) NextLesson(ctx context.Context, currentLevel models.Level, completed map[string]bool) (*models.Lesson, error) {
	start := currentLevel.Rank()
	if start < 0 {
		return nil, apperr.NotFound("level", currentLevel)
	}
	exclude := completedIDs(completed)
	for _, level := range models.Levels[start:] {
		lessons, err := p.catalog.FindEligible(ctx, level, exclude)
		if err != nil {
			return nil, apperr.Storage("find eligible lessons", err)
		}
		if lesson := firstUncompleted(lessons, completed); lesson != nil {
			return lesson, nil
		}
	}
	return nil, nil
}

// NextLesson is the same walk over an already loaded catalog
func NextLesson(currentLevel models.Level, completed map[string]bool, catalog []models.Lesson) (*models.Lesson, error) {
	start := currentLevel.Rank()
	if start < 0 {
		return nil, apperr.NotFound("level", currentLevel)
	}
	byLevel := make(map[models.Level][]models.Lesson)
	for _, l := range catalog {
		byLevel[l.Level] = append(byLevel[l.Level], l)
	}
	for _, level := range models.Levels[start:] {
		if lesson := firstUncompleted(byLevel[level], completed); lesson != nil {
			return lesson, nil
		}
	}
	return nil, nil
}

// firstUncompleted picks the lowest order index not in completed. The catalog
// query already filters, this keeps the result right for any LessonCatalog.
func firstUncompleted(lessons []models.Lesson, completed map[string]bool) *models.Lesson {
	var best *models.Lesson
	for i := range lessons {
		l := &lessons[i]
		if completed[l.ID] {
			continue
		}
		if best == nil || l.OrderIndex < best.OrderIndex {
			best = l
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func completedIDs(completed map[string]bool) []string {
	ids := make([]string, 0, len(completed))
	for id, done := range completed {
		if done {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
