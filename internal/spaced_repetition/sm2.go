package spaced_repetition

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/example/hablabot/pkg/models"
)

const (
	DefaultEaseFactor  = 2.5
	MinEaseFactor      = 1.3
	InitialInterval    = 1 // days after the first good answer or any failure
	GraduatingInterval = 6 // days after the second good answer in a row
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Answers at or above this quality count as recalled
	PassThreshold QualityResponse
	// Upper bound for the review interval in days
	MaxInterval int
}

// NewSM2 returns an SM2 with the default settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold: QualityCorrectDifficult,
		MaxInterval:   365,
	}
}

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// ParseQuality validates a 0..5 grade
func ParseQuality(q int) (QualityResponse, error) {
	if q < int(QualityBlackout) || q > int(QualityPerfect) {
		return 0, fmt.Errorf("quality must be between 0 and 5, got %d", q)
	}
	return QualityResponse(q), nil
}

// Review applies one graded answer to the item and schedules the next review.
// ReviewCount is the number of good answers in a row; a failure resets it.
func (sm *SM2) Review(item *models.VocabularyItem, quality QualityResponse, now time.Time) {
	if item.EaseFactor == 0 {
		item.EaseFactor = DefaultEaseFactor
	}
	q := float64(quality)
	ef := item.EaseFactor + (0.1 - (5.0-q)*(0.08+(5.0-q)*0.02))
	if ef < MinEaseFactor {
		ef = MinEaseFactor
	}
	item.EaseFactor = ef

	if quality < sm.PassThreshold {
		item.ReviewCount = 0
		item.IntervalDays = InitialInterval
	} else {
		switch item.ReviewCount {
		case 0:
			item.IntervalDays = InitialInterval
		case 1:
			item.IntervalDays = GraduatingInterval
		default:
			item.IntervalDays = int(math.Round(float64(item.IntervalDays) * ef))
		}
		if item.IntervalDays > sm.MaxInterval {
			item.IntervalDays = sm.MaxInterval
		}
		item.ReviewCount++
	}
	item.NextReview = now.AddDate(0, 0, item.IntervalDays)
}

// Due returns the items whose review time has come, most overdue first and the
// hardest (lowest ease) first among equally overdue ones. limit <= 0 means all.
func (sm *SM2) Due(items []models.VocabularyItem, now time.Time, limit int) []models.VocabularyItem {
	due := make([]models.VocabularyItem, 0, len(items))
	for _, it := range items {
		if !it.NextReview.After(now) {
			due = append(due, it)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].NextReview.Equal(due[j].NextReview) {
			return due[i].NextReview.Before(due[j].NextReview)
		}
		return due[i].EaseFactor < due[j].EaseFactor
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}

// IsMastered reports whether a word can be considered learned
func (sm *SM2) IsMastered(item *models.VocabularyItem) bool {
	return item.ReviewCount >= 5 && item.IntervalDays >= 30
}
