package weakarea

import (
	"context"
	"sort"
	"time"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
)

// Store is the persistence the tracker needs. Upsert must be atomic per
// (userID, areaType, item): insert with count 1 or increment and refresh last_occurred.
type Store interface {
	Upsert(ctx context.Context, userID int64, areaType models.AreaType, item string, now time.Time) (*models.WeakArea, error)
	QueryTop(ctx context.Context, userID int64, limit int) ([]models.WeakArea, error)
	MarkAddressed(ctx context.Context, userID int64, areaType models.AreaType, item string) error
}

// Tracker accumulates weak-area occurrences per user
type Tracker struct {
	store Store
}

// NewTracker creates a tracker over the given store
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// RecordOccurrence classifies the phrase and counts one more occurrence of it
func (t *Tracker) RecordOccurrence(ctx context.Context, userID int64, phrase string, now time.Time) error {
	item := Normalize(phrase)
	if item == "" {
		return nil
	}
	_, err := t.store.Upsert(ctx, userID, Classify(item), item, now)
	return apperr.Storage("record weak area", err)
}

// RecordAll records every phrase of one analysis pass and returns how many were
// stored. It stops at the first failure.
func (t *Tracker) RecordAll(ctx context.Context, userID int64, phrases []string, now time.Time) (int, error) {
	recorded := 0
	for _, phrase := range phrases {
		if Normalize(phrase) == "" {
			continue
		}
		if err := t.RecordOccurrence(ctx, userID, phrase, now); err != nil {
			return recorded, err
		}
		recorded++
	}
	return recorded, nil
}

// Outstanding returns up to limit unaddressed records, most frequent first and
// most recent first on equal counts.
func (t *Tracker) Outstanding(ctx context.Context, userID int64, limit int) ([]models.WeakArea, error) {
	if limit <= 0 {
		return []models.WeakArea{}, nil
	}
	rows, err := t.store.QueryTop(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Storage("query weak areas", err)
	}
	out := make([]models.WeakArea, 0, len(rows))
	for _, r := range rows {
		if !r.Addressed {
			out = append(out, r)
		}
	}
	SortOutstanding(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TopOutstanding is Outstanding reduced to the specific items
func (t *Tracker) TopOutstanding(ctx context.Context, userID int64, limit int) ([]string, error) {
	rows, err := t.Outstanding(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]string, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.SpecificItem)
	}
	return items, nil
}

// MarkAddressed flags an item as addressed. Already addressed and unknown items
// are no-ops.
func (t *Tracker) MarkAddressed(ctx context.Context, userID int64, areaType models.AreaType, item string) error {
	item = Normalize(item)
	if item == "" || !areaType.Valid() {
		return nil
	}
	return apperr.Storage("mark weak area addressed", t.store.MarkAddressed(ctx, userID, areaType, item))
}

// SortOutstanding orders by occurrence count desc, then last occurrence desc,
// then id desc so equal rows always come out the same way.
func SortOutstanding(rows []models.WeakArea) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OccurrenceCount != rows[j].OccurrenceCount {
			return rows[i].OccurrenceCount > rows[j].OccurrenceCount
		}
		if !rows[i].LastOccurred.Equal(rows[j].LastOccurred) {
			return rows[i].LastOccurred.After(rows[j].LastOccurred)
		}
		return rows[i].ID > rows[j].ID
	})
}
