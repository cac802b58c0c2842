package recommendation

import (
	"context"
	"time"

	"github.com/example/hablabot/pkg/models"
)

// WeakAreaTracker is the write side of weak-area tracking
type WeakAreaTracker interface {
	WeakAreaSource
	RecordAll(ctx context.Context, userID int64, phrases []string, now time.Time) (int, error)
	MarkAddressed(ctx context.Context, userID int64, areaType models.AreaType, item string) error
}

// Service is what the bot and the speech analyzer call
type Service struct {
	assembler *Assembler
	tracker   WeakAreaTracker
	now       func() time.Time
}

// NewService wires the assembler and the weak-area tracker
func NewService(profiles ProfileStore, progress ProgressStore, policy LessonPolicy, tracker WeakAreaTracker) *Service {
	return &Service{
		assembler: NewAssembler(profiles, progress, policy, tracker),
		tracker:   tracker,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordWeakAreas records every mistake phrase of one analysis pass
func (s *Service) RecordWeakAreas(ctx context.Context, userID int64, phrases []string) error {
	_, err := s.tracker.RecordAll(ctx, userID, phrases, s.now())
	return err
}

// GetRecommendation returns the next lesson and the top weak areas
func (s *Service) GetRecommendation(ctx context.Context, userID int64) (*Recommendation, error) {
	return s.assembler.Recommend(ctx, userID)
}

// MarkAddressed flags a weak area as worked on; unknown keys are ignored
func (s *Service) MarkAddressed(ctx context.Context, userID int64, areaType models.AreaType, item string) error {
	return s.tracker.MarkAddressed(ctx, userID, areaType, item)
}
