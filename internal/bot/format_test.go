package bot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/example/hablabot/internal/excel"
	"github.com/example/hablabot/internal/recommendation"
	"github.com/example/hablabot/internal/scheduler"
	"github.com/example/hablabot/internal/speech"
	"github.com/example/hablabot/pkg/models"
)

func TestFormatRecommendation(t *testing.T) {
	rec := &recommendation.Recommendation{
		Lesson: &recommendation.LessonSummary{
			ID: "x", Title: "Ordering at a Restaurant", Level: models.LevelA1, Scenario: "restaurant",
		},
		WeakAreas: []string{"rolled r", "ser vs estar"},
	}
	got := formatRecommendation(rec)
	for _, want := range []string{"Ordering at a Restaurant", "(A1)", "Scenario: restaurant", "• rolled r", "• ser vs estar"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	done := formatRecommendation(&recommendation.Recommendation{
		Message:   recommendation.CatalogExhaustedMessage,
		WeakAreas: []string{"rolled r"},
	})
	if !strings.Contains(done, "All lessons completed!") || !strings.Contains(done, "rolled r") {
		t.Errorf("exhausted catalog text: %s", done)
	}
}

func TestFormatReminder(t *testing.T) {
	got := formatReminder(scheduler.Reminder{
		Lesson:    &recommendation.LessonSummary{Title: "Shopping Basics", Level: models.LevelA1},
		WeakAreas: []string{"gracias", "hola"},
		DueWords:  3,
	})
	for _, want := range []string{"Shopping Basics", "gracias, hola", "3 words"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(formatReminder(scheduler.Reminder{Message: "All lessons completed!"}), "Next lesson") {
		t.Error("reminder without lesson mentions a next lesson")
	}
}

func TestFormatWeakAreas(t *testing.T) {
	if got := formatWeakAreas(nil); !strings.Contains(got, "No open weak areas") {
		t.Errorf("empty list: %q", got)
	}
	got := formatWeakAreas([]models.WeakArea{
		{AreaType: models.AreaPronunciation, SpecificItem: "rolled r", OccurrenceCount: 4},
	})
	if !strings.Contains(got, "1. [pronunciation] rolled r ×4") {
		t.Errorf("got %q", got)
	}
}

func TestFormatAnalysis(t *testing.T) {
	got := formatAnalysis(&speech.Result{
		Transcription:       "hola me llamo ana",
		PronunciationScore:  80,
		GrammarScore:        90,
		FluencyScore:        70,
		Feedback:            "¡Bien!",
		PronunciationIssues: []string{"the r in llamo"},
	})
	for _, want := range []string{"hola me llamo ana", "Pronunciation 80", "Grammar 90", "Fluency 70", "¡Bien!", "the r in llamo"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatLessonList(t *testing.T) {
	lessons := []models.Lesson{
		{ID: "a", Level: models.LevelA1, OrderIndex: 1, Title: "Greetings"},
		{ID: "b", Level: models.LevelA1, OrderIndex: 2, Title: "Restaurant"},
		{ID: "c", Level: models.LevelA2, OrderIndex: 1, Title: "Plans"},
	}
	got := formatLessonList(lessons, map[string]bool{"a": true})
	if !strings.Contains(got, "✅ 1. Greetings") || !strings.Contains(got, "▫️ 2. Restaurant") {
		t.Errorf("completion marks wrong:\n%s", got)
	}
	if strings.Count(got, "A2 - Elementary") != 1 || strings.Count(got, "A1 - Beginner") != 1 {
		t.Errorf("level headers wrong:\n%s", got)
	}
}

func TestParseDoneArgs(t *testing.T) {
	tests := []struct {
		args    string
		id      string
		score   int
		wantErr bool
	}{
		{"abc 90", "abc", 90, false},
		{"  abc   0 ", "abc", 0, false},
		{"abc 100", "abc", 100, false},
		{"abc 101", "", 0, true},
		{"abc -1", "", 0, true},
		{"abc", "", 0, true},
		{"abc ninety", "", 0, true},
		{"", "", 0, true},
	}
	for _, tt := range tests {
		id, score, err := parseDoneArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDoneArgs(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if id != tt.id || score != tt.score {
			t.Errorf("parseDoneArgs(%q) = %q, %d; want %q, %d", tt.args, id, score, tt.id, tt.score)
		}
	}
}

func TestParseAddressedArgs(t *testing.T) {
	areaType, item, err := parseAddressedArgs("Grammar ser vs estar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if areaType != models.AreaGrammar || item != "ser vs estar" {
		t.Errorf("got %q %q", areaType, item)
	}
	for _, bad := range []string{"", "grammar", "spelling hola"} {
		if _, _, err := parseAddressedArgs(bad); err == nil {
			t.Errorf("parseAddressedArgs(%q) should fail", bad)
		}
	}
}

func TestParseHourAndToggle(t *testing.T) {
	if h, err := parseHour(" 7 "); err != nil || h != 7 {
		t.Errorf("parseHour(7) = %d, %v", h, err)
	}
	for _, bad := range []string{"24", "-1", "seven", ""} {
		if _, err := parseHour(bad); err == nil {
			t.Errorf("parseHour(%q) should fail", bad)
		}
	}
	if on, err := parseToggle("ON"); err != nil || !on {
		t.Errorf("parseToggle(ON) = %v, %v", on, err)
	}
	if on, err := parseToggle("off"); err != nil || on {
		t.Errorf("parseToggle(off) = %v, %v", on, err)
	}
	if _, err := parseToggle("maybe"); err == nil {
		t.Error("parseToggle(maybe) should fail")
	}
}

func TestMean(t *testing.T) {
	if mean(nil) != 0 {
		t.Error("mean of nothing should be 0")
	}
	if got := mean([]int{90, 80, 71}); got != 80 {
		t.Errorf("mean = %d, want 80", got)
	}
}

func TestFormatImportResultTruncatesErrors(t *testing.T) {
	r := &excel.ImportResult{TotalProcessed: 15, Created: 1}
	for i := 0; i < 14; i++ {
		r.Errors = append(r.Errors, fmt.Sprintf("row %d: bad level", i+2))
	}
	got := formatImportResult(r)
	if strings.Count(got, "• ") != 10 {
		t.Errorf("expected 10 listed errors:\n%s", got)
	}
	if !strings.Contains(got, "and 4 more") {
		t.Errorf("missing overflow note:\n%s", got)
	}
}
