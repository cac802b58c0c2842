// Package speech grades spoken answers and feeds detected mistakes into
// weak-area tracking.
package speech

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"strings"
	"time"

	"github.com/example/hablabot/internal/ai"
	"github.com/example/hablabot/internal/logger"
	"github.com/example/hablabot/pkg/models"
	"github.com/google/uuid"
)

const (
	neutralScore          = 85
	transcriptionFailed   = "Could not transcribe audio. Please try again."
	transcriptionOnly     = "Transcription successful."
	fallbackGoodFeedback  = "Good effort! Keep practicing."
	fallbackCloseFeedback = "Try to match the expected phrase more closely."
)

// Transcriber turns audio into Spanish text
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Grader scores a transcription against the expected answer
type Grader interface {
	AnalyzeSpeech(ctx context.Context, transcription, expected, exerciseType string, level models.Level) (*ai.SpeechAnalysis, error)
}

// RecordingStore persists analyzed recordings
type RecordingStore interface {
	Create(ctx context.Context, rec *models.SpeechRecording) error
}

// WeakAreaRecorder is the recordWeakAreas entry point of the recommendation service
type WeakAreaRecorder interface {
	RecordWeakAreas(ctx context.Context, userID int64, phrases []string) error
}

// Request is one spoken answer
type Request struct {
	UserID       int64
	Level        models.Level
	LessonID     string
	Audio        io.Reader
	Filename     string
	ExpectedText string // empty for free conversation
	ExerciseType string
}

// Result is what the learner sees
type Result struct {
	Transcription       string
	PronunciationScore  int
	GrammarScore        int
	FluencyScore        int
	Feedback            string
	PronunciationIssues []string
	GrammarIssues       []string
	WeakAreas           []string
}

// Analyzer runs transcription, grading and bookkeeping for spoken answers
type Analyzer struct {
	transcriber Transcriber
	grader      Grader
	recordings  RecordingStore
	weakAreas   WeakAreaRecorder
	log         *logger.Logger
	now         func() time.Time
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(t Transcriber, g Grader, recordings RecordingStore, weakAreas WeakAreaRecorder, log *logger.Logger) *Analyzer {
	return &Analyzer{
		transcriber: t,
		grader:      g,
		recordings:  recordings,
		weakAreas:   weakAreas,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Analyze never fails because of the provider: a failed transcription gives a
// zero score with a retry hint and a failed grading falls back to word overlap.
// Storage problems after grading are logged and do not change the result.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	transcription, err := a.transcriber.Transcribe(ctx, req.Audio, req.Filename)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.log.Warn("Transcription failed", "user_id", req.UserID, "error", err)
		return &Result{Feedback: transcriptionFailed, PronunciationIssues: []string{}, GrammarIssues: []string{}, WeakAreas: []string{}}, nil
	}

	if strings.TrimSpace(req.ExpectedText) == "" {
		return &Result{
			Transcription:       transcription,
			PronunciationScore:  neutralScore,
			GrammarScore:        neutralScore,
			FluencyScore:        neutralScore,
			Feedback:            transcriptionOnly,
			PronunciationIssues: []string{},
			GrammarIssues:       []string{},
			WeakAreas:           []string{},
		}, nil
	}

	analysis, err := a.grader.AnalyzeSpeech(ctx, transcription, req.ExpectedText, req.ExerciseType, req.Level)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.log.Warn("Speech analysis failed, using similarity fallback", "user_id", req.UserID, "error", err)
		sim := Similarity(strings.ToLower(transcription), strings.ToLower(req.ExpectedText))
		score := int(math.Round(sim * 100))
		feedback := fallbackCloseFeedback
		if sim > 0.7 {
			feedback = fallbackGoodFeedback
		}
		return &Result{
			Transcription:       transcription,
			PronunciationScore:  score,
			GrammarScore:        score,
			FluencyScore:        score,
			Feedback:            feedback,
			PronunciationIssues: []string{},
			GrammarIssues:       []string{},
			WeakAreas:           []string{},
		}, nil
	}

	res := &Result{
		Transcription:       transcription,
		PronunciationScore:  analysis.PronunciationScore,
		GrammarScore:        analysis.GrammarScore,
		FluencyScore:        analysis.VocabularyScore,
		Feedback:            analysis.OverallFeedback,
		PronunciationIssues: nonNil(analysis.PronunciationIssues),
		GrammarIssues:       nonNil(analysis.GrammarIssues),
		WeakAreas:           nonNil(analysis.WeakAreasDetected),
	}
	a.store(ctx, req, res, analysis)
	return res, nil
}

func (a *Analyzer) store(ctx context.Context, req Request, res *Result, analysis *ai.SpeechAnalysis) {
	feedback, err := json.Marshal(analysis)
	if err != nil {
		feedback = []byte("{}")
	}
	rec := &models.SpeechRecording{
		ID:                 uuid.NewString(),
		UserID:             req.UserID,
		LessonID:           req.LessonID,
		Transcription:      res.Transcription,
		ExpectedText:       req.ExpectedText,
		PronunciationScore: res.PronunciationScore,
		GrammarScore:       res.GrammarScore,
		FluencyScore:       res.FluencyScore,
		Feedback:           string(feedback),
		CreatedAt:          a.now(),
	}
	if err := a.recordings.Create(ctx, rec); err != nil {
		a.log.Error("Failed to store recording", "user_id", req.UserID, "error", err)
		return
	}
	if len(res.WeakAreas) == 0 {
		return
	}
	if err := a.weakAreas.RecordWeakAreas(ctx, req.UserID, res.WeakAreas); err != nil {
		a.log.Error("Failed to record weak areas", "user_id", req.UserID, "areas", res.WeakAreas, "error", err)
	}
}

// Similarity is the share of words of a that overlap (as substrings either way)
// with some word of b, over the longer word count.
func Similarity(a, b string) float64 {
	wa, wb := strings.Fields(a), strings.Fields(b)
	longest := len(wa)
	if len(wb) > longest {
		longest = len(wb)
	}
	if longest == 0 {
		return 0
	}
	matches := 0
	for _, w := range wa {
		for _, v := range wb {
			if strings.Contains(v, w) || strings.Contains(w, v) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(longest)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
