package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/example/hablabot/internal/logger"
	"github.com/example/hablabot/internal/recommendation"
	"github.com/example/hablabot/internal/spaced_repetition"
	"github.com/example/hablabot/pkg/models"
	"github.com/go-co-op/gocron"
)

// Default notification window, inclusive, in UTC hours
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 21
)

// Reminder is the content of one practice reminder
type Reminder struct {
	Lesson    *recommendation.LessonSummary
	Message   string
	WeakAreas []string
	DueWords  int
}

// Empty reports whether there is nothing worth sending
func (r Reminder) Empty() bool {
	return r.Lesson == nil && len(r.WeakAreas) == 0 && r.DueWords == 0
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(userID int64, r Reminder) error
}

// UserLister finds users who want a reminder at a given hour
type UserLister interface {
	GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error)
}

// Recommender supplies the next lesson and weak areas for a reminder
type Recommender interface {
	GetRecommendation(ctx context.Context, userID int64) (*recommendation.Recommendation, error)
}

// Deck lists a user's vocabulary items
type Deck interface {
	ListByUser(ctx context.Context, userID int64) ([]models.VocabularyItem, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler   *gocron.Scheduler
	notifier    Notifier
	users       UserLister
	recommender Recommender
	deck        Deck
	sm2         *spaced_repetition.SM2
	startHour   int
	endHour     int
	log         *logger.Logger
}

// New creates a new scheduler instance. Hours outside 0..23 fall back to the defaults.
func New(notifier Notifier, users UserLister, recommender Recommender, deck Deck, startHour, endHour int, log *logger.Logger) *Scheduler {
	if startHour < 0 || startHour > 23 {
		startHour = DefaultNotificationStartHour
	}
	if endHour < 0 || endHour > 23 {
		endHour = DefaultNotificationEndHour
	}
	return &Scheduler{
		scheduler:   gocron.NewScheduler(time.UTC),
		notifier:    notifier,
		users:       users,
		recommender: recommender,
		deck:        deck,
		sm2:         spaced_repetition.NewSM2(),
		startHour:   startHour,
		endHour:     endHour,
		log:         log,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	// Schedule hourly check for users who need notifications
	_, err := s.scheduler.Every(1).Hour().Do(func() {
		s.CheckAndSendReminders(context.Background(), time.Now().UTC())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InWindow reports whether hour lies in [start, end]; start > end wraps past midnight
func InWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}

// CheckAndSendReminders sends reminders to everybody who asked for one at now's hour.
// It returns how many were sent.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context, now time.Time) int {
	currentHour := now.Hour()
	if !InWindow(currentHour, s.startHour, s.endHour) {
		s.log.Debug("Outside notification hours, skipping reminders",
			"hour", currentHour, "start", s.startHour, "end", s.endHour)
		return 0
	}

	users, err := s.users.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		s.log.Error("Error getting users for notification", "error", err)
		return 0
	}

	sent := 0
	for _, user := range users {
		ok, err := s.remind(ctx, user.ID, now)
		if err != nil {
			s.log.Error("Error sending reminder", "user_id", user.ID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	s.log.Info("Reminders sent", "hour", currentHour, "candidates", len(users), "sent", sent)
	return sent
}

// RunManualCheck forces a reminder for a specific user
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) (bool, error) {
	return s.remind(ctx, userID, time.Now().UTC())
}

// BuildReminder collects what a reminder for the user would contain
func (s *Scheduler) BuildReminder(ctx context.Context, userID int64, now time.Time) (Reminder, error) {
	rec, err := s.recommender.GetRecommendation(ctx, userID)
	if err != nil {
		return Reminder{}, err
	}
	items, err := s.deck.ListByUser(ctx, userID)
	if err != nil {
		return Reminder{}, err
	}
	return Reminder{
		Lesson:    rec.Lesson,
		Message:   rec.Message,
		WeakAreas: rec.WeakAreas,
		DueWords:  len(s.sm2.Due(items, now, 0)),
	}, nil
}

func (s *Scheduler) remind(ctx context.Context, userID int64, now time.Time) (bool, error) {
	r, err := s.BuildReminder(ctx, userID, now)
	if err != nil {
		return false, err
	}
	if r.Empty() {
		return false, nil
	}
	if err := s.notifier.SendReminder(userID, r); err != nil {
		return false, err
	}
	return true, nil
}
