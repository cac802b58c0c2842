// Package recommendation combines the next lesson and the learner's outstanding
// weak areas into the payload shown after each practice session.
package recommendation

import (
	"context"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
	"golang.org/x/sync/errgroup"
)

// CatalogExhaustedMessage is sent when no lesson is left at or above the learner's level
const CatalogExhaustedMessage = "All lessons completed!"

// weakAreaLimit is how many weak areas a recommendation carries
const weakAreaLimit = 3

// ProfileStore resolves a learner's current level
type ProfileStore interface {
	GetCurrentLevel(ctx context.Context, userID int64) (models.Level, error)
}

// ProgressStore lists the lessons a learner has completed
type ProgressStore interface {
	GetCompletedLessonIDs(ctx context.Context, userID int64) (map[string]bool, error)
}

// LessonPolicy picks the next lesson for a level and completed set
type LessonPolicy interface {
	NextLesson(ctx context.Context, currentLevel models.Level, completed map[string]bool) (*models.Lesson, error)
}

// WeakAreaSource returns the most frequent unaddressed weak areas
type WeakAreaSource interface {
	TopOutstanding(ctx context.Context, userID int64, limit int) ([]string, error)
}

// LessonSummary is the slice of a lesson shown in a recommendation
type LessonSummary struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Level       models.Level `json:"level"`
	Scenario    string       `json:"scenario"`
}

// Recommendation is either a lesson or the exhausted message, plus weak areas
type Recommendation struct {
	Lesson    *LessonSummary `json:"lesson"`
	WeakAreas []string       `json:"weak_areas"`
	Message   string         `json:"message,omitempty"`
}

// Assembler builds recommendations from its collaborators
type Assembler struct {
	profiles  ProfileStore
	progress  ProgressStore
	policy    LessonPolicy
	weakAreas WeakAreaSource
}

// NewAssembler creates an assembler over its collaborators
func NewAssembler(profiles ProfileStore, progress ProgressStore, policy LessonPolicy, weakAreas WeakAreaSource) *Assembler {
	return &Assembler{profiles: profiles, progress: progress, policy: policy, weakAreas: weakAreas}
}

// Recommend returns the next lesson and the top outstanding weak areas.
// Errors from any collaborator are returned as is, nothing is retried.
func (a *Assembler) Recommend(ctx context.Context, userID int64) (*Recommendation, error) {
	var (
		level     models.Level
		completed map[string]bool
		weak      []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		level, err = a.profiles.GetCurrentLevel(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		completed, err = a.progress.GetCompletedLessonIDs(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		weak, err = a.weakAreas.TopOutstanding(gctx, userID, weakAreaLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Storage("load recommendation inputs", err)
	}

	lesson, err := a.policy.NextLesson(ctx, level, completed)
	if err != nil {
		return nil, err
	}
	if weak == nil {
		weak = []string{}
	}

	rec := &Recommendation{WeakAreas: weak}
	if lesson == nil {
		rec.Message = CatalogExhaustedMessage
		return rec, nil
	}
	rec.Lesson = &LessonSummary{
		ID:          lesson.ID,
		Title:       lesson.Title,
		Description: lesson.Description,
		Level:       lesson.Level,
		Scenario:    lesson.Scenario,
	}
	return rec, nil
}
