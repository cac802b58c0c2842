// Package catalog loads the lesson catalog from YAML and seeds the database with it.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/example/hablabot/internal/logger"
	"github.com/example/hablabot/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Lessons []seedLesson `yaml:"lessons"`
}

type seedLesson struct {
	Title       string               `yaml:"title"`
	Description string               `yaml:"description"`
	Level       string               `yaml:"level"`
	Scenario    string               `yaml:"scenario"`
	OrderIndex  int                  `yaml:"orderIndex"`
	Content     models.LessonContent `yaml:"content"`
}

// Store is the part of the lesson repository seeding needs
type Store interface {
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, lesson *models.Lesson) (bool, error)
}

// Default returns the built-in catalog
func Default() ([]models.Lesson, error) {
	return Parse(defaultSeed)
}

// LoadFile reads a catalog from a YAML file
func LoadFile(path string) ([]models.Lesson, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and validates every lesson
func Parse(data []byte) ([]models.Lesson, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool)
	lessons := make([]models.Lesson, 0, len(f.Lessons))
	for i, s := range f.Lessons {
		level, err := models.ParseLevel(s.Level)
		if err != nil {
			return nil, fmt.Errorf("lesson %d (%s): %w", i+1, s.Title, err)
		}
		if s.Title == "" {
			return nil, fmt.Errorf("lesson %d: title is required", i+1)
		}
		if s.OrderIndex < 1 {
			return nil, fmt.Errorf("lesson %d (%s): orderIndex must be positive", i+1, s.Title)
		}
		key := fmt.Sprintf("%s/%d", level, s.OrderIndex)
		if seen[key] {
			return nil, fmt.Errorf("lesson %d (%s): duplicate position %s", i+1, s.Title, key)
		}
		seen[key] = true

		content, err := json.Marshal(s.Content)
		if err != nil {
			return nil, fmt.Errorf("lesson %d (%s): %w", i+1, s.Title, err)
		}
		lessons = append(lessons, models.Lesson{
			Level:       level,
			OrderIndex:  s.OrderIndex,
			Title:       s.Title,
			Description: s.Description,
			Scenario:    s.Scenario,
			Content:     string(content),
		})
	}
	return lessons, nil
}

// Seed upserts lessons by (level, order index); running it twice changes nothing
func Seed(ctx context.Context, store Store, lessons []models.Lesson) (created, updated int, err error) {
	for i := range lessons {
		isNew, err := store.Upsert(ctx, &lessons[i])
		if err != nil {
			return created, updated, fmt.Errorf("failed to seed lesson %q: %w", lessons[i].Title, err)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

// EnsureSeeded loads the built-in catalog into an empty store. With a file path
// the file is always applied on top of whatever is there.
func EnsureSeeded(ctx context.Context, store Store, path string, log *logger.Logger) error {
	var (
		lessons []models.Lesson
		err     error
	)
	if path != "" {
		lessons, err = LoadFile(path)
	} else {
		n, cerr := store.Count(ctx)
		if cerr != nil {
			return cerr
		}
		if n > 0 {
			log.Debug("Lesson catalog already populated", "lessons", n)
			return nil
		}
		lessons, err = Default()
	}
	if err != nil {
		return err
	}

	created, updated, err := Seed(ctx, store, lessons)
	if err != nil {
		return err
	}
	log.Info("Lesson catalog seeded", "created", created, "updated", updated, "source", sourceName(path))
	return nil
}

func sourceName(path string) string {
	if path == "" {
		return "builtin"
	}
	return path
}

// DecodeContent unpacks the JSON content column of a lesson
func DecodeContent(lesson *models.Lesson) (*models.LessonContent, error) {
	var content models.LessonContent
	if lesson.Content == "" {
		return &content, nil
	}
	if err := json.Unmarshal([]byte(lesson.Content), &content); err != nil {
		return nil, fmt.Errorf("failed to decode content of lesson %s: %w", lesson.ID, err)
	}
	return &content, nil
}
