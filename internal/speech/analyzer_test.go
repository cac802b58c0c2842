package speech

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/example/hablabot/internal/ai"
	"github.com/example/hablabot/internal/logger"
	"github.com/example/hablabot/pkg/models"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, io.Reader, string) (string, error) {
	return f.text, f.err
}

type fakeGrader struct {
	analysis *ai.SpeechAnalysis
	err      error
	calls    int
}

func (f *fakeGrader) AnalyzeSpeech(context.Context, string, string, string, models.Level) (*ai.SpeechAnalysis, error) {
	f.calls++
	return f.analysis, f.err
}

type fakeRecordings struct {
	saved []models.SpeechRecording
	err   error
}

func (f *fakeRecordings) Create(_ context.Context, rec *models.SpeechRecording) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, *rec)
	return nil
}

type fakeWeak struct {
	phrases []string
	err     error
}

func (f *fakeWeak) RecordWeakAreas(_ context.Context, _ int64, phrases []string) error {
	f.phrases = append(f.phrases, phrases...)
	return f.err
}

func request(expected string) Request {
	return Request{UserID: 3, Level: models.LevelA1, Audio: strings.NewReader("ogg"), Filename: "voice.ogg", ExpectedText: expected, ExerciseType: "shadowing"}
}

func TestAnalyzeRecordsWeakAreas(t *testing.T) {
	grader := &fakeGrader{analysis: &ai.SpeechAnalysis{
		PronunciationScore: 70, GrammarScore: 90, VocabularyScore: 80,
		OverallFeedback:   "Casi perfecto",
		WeakAreasDetected: []string{"rolled r", "gender agreement"},
	}}
	recs := &fakeRecordings{}
	weak := &fakeWeak{}
	a := NewAnalyzer(fakeTranscriber{text: "pero"}, grader, recs, weak, logger.Nop())

	res, err := a.Analyze(context.Background(), request("perro"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.PronunciationScore != 70 || res.FluencyScore != 80 || res.Feedback != "Casi perfecto" {
		t.Errorf("result = %+v", res)
	}
	if len(recs.saved) != 1 || recs.saved[0].ExpectedText != "perro" || recs.saved[0].ID == "" {
		t.Fatalf("saved = %+v", recs.saved)
	}
	if len(weak.phrases) != 2 || weak.phrases[0] != "rolled r" {
		t.Errorf("weak areas recorded = %v", weak.phrases)
	}
}

func TestAnalyzeTranscriptionFailure(t *testing.T) {
	grader := &fakeGrader{}
	recs := &fakeRecordings{}
	a := NewAnalyzer(fakeTranscriber{err: errors.New("503")}, grader, recs, &fakeWeak{}, logger.Nop())

	res, err := a.Analyze(context.Background(), request("hola"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.PronunciationScore != 0 || res.Feedback != transcriptionFailed {
		t.Errorf("result = %+v", res)
	}
	if grader.calls != 0 || len(recs.saved) != 0 {
		t.Error("nothing should run after a failed transcription")
	}
}

func TestAnalyzeWithoutExpectedText(t *testing.T) {
	grader := &fakeGrader{}
	a := NewAnalyzer(fakeTranscriber{text: "buenos días"}, grader, &fakeRecordings{}, &fakeWeak{}, logger.Nop())
	res, err := a.Analyze(context.Background(), request("  "))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Transcription != "buenos días" || res.GrammarScore != neutralScore {
		t.Errorf("result = %+v", res)
	}
	if grader.calls != 0 {
		t.Error("grader should not be called without expected text")
	}
}

func TestAnalyzeGraderFallback(t *testing.T) {
	weak := &fakeWeak{}
	recs := &fakeRecordings{}
	a := NewAnalyzer(fakeTranscriber{text: "Me llamo Ana"}, &fakeGrader{err: errors.New("rate limited")}, recs, weak, logger.Nop())
	res, err := a.Analyze(context.Background(), request("me llamo ana"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.PronunciationScore != 100 || res.Feedback != fallbackGoodFeedback {
		t.Errorf("result = %+v", res)
	}
	if len(weak.phrases) != 0 || len(recs.saved) != 0 {
		t.Error("fallback must not record anything")
	}
}

func TestAnalyzeStorageFailureIsNotFatal(t *testing.T) {
	grader := &fakeGrader{analysis: &ai.SpeechAnalysis{PronunciationScore: 50, WeakAreasDetected: []string{"ñ"}}}
	weak := &fakeWeak{}
	a := NewAnalyzer(fakeTranscriber{text: "nino"}, grader, &fakeRecordings{err: errors.New("disk full")}, weak, logger.Nop())
	res, err := a.Analyze(context.Background(), request("niño"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.PronunciationScore != 50 || len(res.WeakAreas) != 1 {
		t.Errorf("result = %+v", res)
	}

	weak.err = errors.New("locked")
	a = NewAnalyzer(fakeTranscriber{text: "nino"}, grader, &fakeRecordings{}, weak, logger.Nop())
	if _, err := a.Analyze(context.Background(), request("niño")); err != nil {
		t.Fatalf("weak-area failure leaked: %v", err)
	}
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewAnalyzer(fakeTranscriber{err: context.Canceled}, &fakeGrader{}, &fakeRecordings{}, &fakeWeak{}, logger.Nop())
	if _, err := a.Analyze(ctx, request("hola")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"hola", "hola", 1},
		{"me llamo ana", "me llamo maría", 2.0 / 3.0},
		{"quiero un café", "quiero", 1.0 / 3.0},
		{"", "", 0},
		{"gato", "perro", 0},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
