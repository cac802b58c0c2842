// Package progress records lesson completions and the per-day practice counters.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/example/hablabot/internal/catalog"
	"github.com/example/hablabot/internal/logger"
	"github.com/example/hablabot/internal/spaced_repetition"
	"github.com/example/hablabot/pkg/models"
)

// LessonGetter loads a lesson by id
type LessonGetter interface {
	GetByID(ctx context.Context, id string) (*models.Lesson, error)
}

// UserLessonStore tracks per-user lesson status
type UserLessonStore interface {
	Open(ctx context.Context, userID int64, lessonID string, now time.Time) (*models.UserLesson, error)
	Complete(ctx context.Context, userID int64, lessonID string, score int, now time.Time) error
	ListByUser(ctx context.Context, userID int64) ([]models.UserLesson, error)
}

// DailyStore keeps the per-day practice counters
type DailyStore interface {
	RecordExercise(ctx context.Context, userID int64, day time.Time, score int) error
	ListSince(ctx context.Context, userID int64, since time.Time) ([]models.DailyProgress, error)
}

// Deck is the user's vocabulary review deck
type Deck interface {
	AddWords(ctx context.Context, userID int64, words []models.VocabularyWord, source string, now time.Time, easeFactor float64) (int, error)
}

// Summary is the learner's progress overview
type Summary struct {
	Completed  int
	InProgress int
	Days       []models.DailyProgress
	Exercises  int // sum over Days
	AvgScore   int // mean speaking score over Days with activity
}

// Service ties lessons to user progress
type Service struct {
	lessons     LessonGetter
	userLessons UserLessonStore
	daily       DailyStore
	deck        Deck
	log         *logger.Logger
}

// NewService creates a progress service
func NewService(lessons LessonGetter, userLessons UserLessonStore, daily DailyStore, deck Deck, log *logger.Logger) *Service {
	return &Service{lessons: lessons, userLessons: userLessons, daily: daily, deck: deck, log: log}
}

// OpenLesson returns the lesson and marks it in progress for the user unless it
// was already opened or completed.
func (s *Service) OpenLesson(ctx context.Context, userID int64, lessonID string, now time.Time) (*models.Lesson, *models.UserLesson, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, nil, err
	}
	ul, err := s.userLessons.Open(ctx, userID, lessonID, now)
	if err != nil {
		return nil, nil, err
	}
	return lesson, ul, nil
}

// CompleteLesson stores the score, bumps today's counters and adds the lesson
// words to the review deck. Completing again overwrites the score.
func (s *Service) CompleteLesson(ctx context.Context, userID int64, lessonID string, score int, now time.Time) (int, error) {
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("score must be between 0 and 100, got %d", score)
	}
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return 0, err
	}
	if err := s.userLessons.Complete(ctx, userID, lessonID, score, now); err != nil {
		return 0, err
	}
	if err := s.daily.RecordExercise(ctx, userID, models.Day(now), score); err != nil {
		return 0, err
	}

	content, err := catalog.DecodeContent(lesson)
	if err != nil {
		// the completion is stored, a broken content column only costs the deck update
		s.log.Warn("Skipping vocabulary of lesson", "lesson", lessonID, "error", err)
		return 0, nil
	}
	added, err := s.deck.AddWords(ctx, userID, content.Vocabulary, lesson.Title, now, spaced_repetition.DefaultEaseFactor)
	if err != nil {
		return 0, err
	}
	s.log.Info("Lesson completed", "user_id", userID, "lesson", lessonID, "score", score, "new_words", added)
	return added, nil
}

// Summary returns completion counts and the last days of activity
func (s *Service) Summary(ctx context.Context, userID int64, days int, now time.Time) (*Summary, error) {
	if days <= 0 {
		return nil, fmt.Errorf("summary window must be positive, got %d days", days)
	}
	rows, err := s.userLessons.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	since := models.Day(now).AddDate(0, 0, -(days - 1))
	daily, err := s.daily.ListSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Days: daily}
	for _, ul := range rows {
		switch ul.Status {
		case models.StatusCompleted:
			sum.Completed++
		case models.StatusInProgress:
			sum.InProgress++
		}
	}
	total, active := 0, 0
	for _, d := range daily {
		sum.Exercises += d.ExercisesCompleted
		if d.ExercisesCompleted > 0 {
			total += d.SpeakingScore
			active++
		}
	}
	if active > 0 {
		sum.AvgScore = total / active
	}
	return sum, nil
}
