package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/hablabot/internal/database"
	"github.com/example/hablabot/internal/logger"
	"github.com/example/hablabot/pkg/models"
)

func TestDefaultCatalog(t *testing.T) {
	lessons, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(lessons) != 5 {
		t.Fatalf("got %d lessons, want 5", len(lessons))
	}
	first := lessons[0]
	if first.Title != "Greetings & Introductions" || first.Level != models.LevelA1 || first.OrderIndex != 1 {
		t.Errorf("first lesson = %+v", first)
	}
	last := lessons[4]
	if last.Level != models.LevelA2 || last.Scenario != "social" {
		t.Errorf("last lesson = %+v", last)
	}

	content, err := DecodeContent(&first)
	if err != nil {
		t.Fatalf("DecodeContent: %v", err)
	}
	if len(content.Exercises) != 3 || len(content.Vocabulary) != 5 || len(content.Dialogue) != 4 {
		t.Errorf("content sizes: %d exercises, %d words, %d lines", len(content.Exercises), len(content.Vocabulary), len(content.Dialogue))
	}
	if got := content.Exercises[1].AcceptableResponses; len(got) != 3 || got[2] != "Mi nombre es" {
		t.Errorf("acceptable responses = %v", got)
	}
	if content.Vocabulary[0].Pronunciation != "OH-lah" {
		t.Errorf("pronunciation = %q", content.Vocabulary[0].Pronunciation)
	}
}

func TestParseRejectsBadLessons(t *testing.T) {
	tests := map[string]string{
		"bad level":      "lessons:\n  - {title: X, level: D1, orderIndex: 1}\n",
		"no title":       "lessons:\n  - {level: A1, orderIndex: 1}\n",
		"zero order":     "lessons:\n  - {title: X, level: A1, orderIndex: 0}\n",
		"duplicate slot": "lessons:\n  - {title: X, level: A1, orderIndex: 1}\n  - {title: Y, level: a1, orderIndex: 1}\n",
		"not yaml":       "lessons: [",
	}
	for name, doc := range tests {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestEnsureSeededIsIdempotent(t *testing.T) {
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	repo := database.NewLessonRepository(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := EnsureSeeded(ctx, repo, "", logger.Nop()); err != nil {
			t.Fatalf("EnsureSeeded #%d: %v", i+1, err)
		}
	}
	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("count = %d, want 5", n)
	}
}

func TestEnsureSeededFromFile(t *testing.T) {
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	repo := database.NewLessonRepository(db)
	ctx := context.Background()

	if err := EnsureSeeded(ctx, repo, "", logger.Nop()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := strings.Join([]string{
		"lessons:",
		"  - title: Saludos formales",
		"    level: A1",
		"    orderIndex: 1",
		"    scenario: meeting_people",
		"  - title: Viajar en tren",
		"    level: B1",
		"    orderIndex: 1",
		"    scenario: travel",
	}, "\n")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureSeeded(ctx, repo, path, logger.Nop()); err != nil {
		t.Fatalf("EnsureSeeded: %v", err)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 6 {
		t.Fatalf("count = %d, want 6", len(all))
	}
	if all[0].Title != "Saludos formales" {
		t.Errorf("A1/1 title = %q, want it replaced", all[0].Title)
	}
	if all[5].Level != models.LevelB1 {
		t.Errorf("last lesson level = %s, want B1", all[5].Level)
	}
}
