package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/hablabot/internal/progress"
	"github.com/example/hablabot/internal/recommendation"
	"github.com/example/hablabot/internal/scheduler"
	"github.com/example/hablabot/internal/speech"
	"github.com/example/hablabot/pkg/models"
)

const helpText = `¡Hola! I help you practice spoken Spanish.

/next - your next lesson and what to work on
/lessons - the whole catalog
/lesson <id> - open a lesson
/done <id> <score> - mark a lesson completed (score 0-100)
/weak - your recurring mistakes
/addressed <type> <item> - mark a mistake as worked on
/level [A1..C2] - show or change your level
/review - practice words that are due
/talk [scenario] - start a conversation with the tutor
/stop - end the conversation or lesson
/progress - your last days of practice
/notify on|off - daily reminders
/time <hour> - reminder hour (0-23, UTC)
/remind - send me a reminder now

Send a voice message to answer the current exercise.`

func formatRecommendation(rec *recommendation.Recommendation) string {
	var sb strings.Builder
	if rec.Lesson == nil {
		sb.WriteString("🎉 " + rec.Message + "\n")
	} else {
		l := rec.Lesson
		fmt.Fprintf(&sb, "🎯 Next lesson (%s): %s\n", l.Level, l.Title)
		if l.Description != "" {
			sb.WriteString(l.Description + "\n")
		}
		if l.Scenario != "" {
			fmt.Fprintf(&sb, "Scenario: %s\n", l.Scenario)
		}
	}
	if len(rec.WeakAreas) > 0 {
		sb.WriteString("\nFocus on:\n")
		for _, w := range rec.WeakAreas {
			sb.WriteString("• " + w + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatReminder(r scheduler.Reminder) string {
	var sb strings.Builder
	sb.WriteString("⏰ Time for some Spanish!\n")
	if r.Lesson != nil {
		fmt.Fprintf(&sb, "Next lesson: %s (%s)\n", r.Lesson.Title, r.Lesson.Level)
	} else if r.Message != "" {
		sb.WriteString(r.Message + "\n")
	}
	if len(r.WeakAreas) > 0 {
		fmt.Fprintf(&sb, "Keep an eye on: %s\n", strings.Join(r.WeakAreas, ", "))
	}
	if r.DueWords > 0 {
		fmt.Fprintf(&sb, "%d words are due for review.\n", r.DueWords)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatWeakAreas(rows []models.WeakArea) string {
	if len(rows) == 0 {
		return "No open weak areas. ¡Muy bien!"
	}
	var sb strings.Builder
	sb.WriteString("🩹 Your recurring mistakes:\n")
	for i, w := range rows {
		fmt.Fprintf(&sb, "%d. [%s] %s ×%d\n", i+1, w.AreaType, w.SpecificItem, w.OccurrenceCount)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatSummary(sum *progress.Summary, level models.Level, days int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Level %s (%s)\n", level, models.LevelNames[level])
	fmt.Fprintf(&sb, "Lessons completed: %d, in progress: %d\n", sum.Completed, sum.InProgress)
	fmt.Fprintf(&sb, "Last %d days: %d exercises", days, sum.Exercises)
	if sum.Exercises > 0 {
		fmt.Fprintf(&sb, ", average score %d", sum.AvgScore)
	}
	for _, d := range sum.Days {
		fmt.Fprintf(&sb, "\n%s: %d exercises, score %d", d.Date.Format("2006-01-02"), d.ExercisesCompleted, d.SpeakingScore)
	}
	return sb.String()
}

func formatAnalysis(res *speech.Result) string {
	var sb strings.Builder
	if res.Transcription != "" {
		fmt.Fprintf(&sb, "🗣 You said: %s\n", res.Transcription)
	}
	fmt.Fprintf(&sb, "Pronunciation %d · Grammar %d · Fluency %d\n",
		res.PronunciationScore, res.GrammarScore, res.FluencyScore)
	if res.Feedback != "" {
		sb.WriteString(res.Feedback + "\n")
	}
	for _, issue := range res.PronunciationIssues {
		sb.WriteString("🔈 " + issue + "\n")
	}
	for _, issue := range res.GrammarIssues {
		sb.WriteString("✏️ " + issue + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatLessonIntro(lesson *models.Lesson, content *models.LessonContent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📖 %s (%s)\n", lesson.Title, lesson.Level)
	if content.Introduction != "" {
		sb.WriteString(content.Introduction + "\n")
	}
	if len(content.Dialogue) > 0 {
		sb.WriteString("\n")
		for _, line := range content.Dialogue {
			fmt.Fprintf(&sb, "%s: %s (%s)\n", line.Speaker, line.Spanish, line.English)
		}
	}
	if len(content.Vocabulary) > 0 {
		sb.WriteString("\nVocabulary:\n")
		for _, w := range content.Vocabulary {
			fmt.Fprintf(&sb, "• %s - %s\n", w.Spanish, w.English)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatExercise(index, total int, ex models.Exercise) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Exercise %d/%d (%s)\n%s", index+1, total, ex.Type, ex.Prompt)
	if ex.Hint != "" {
		fmt.Fprintf(&sb, "\nHint: %s", ex.Hint)
	}
	sb.WriteString("\n🎙 Answer with a voice message.")
	return sb.String()
}

func formatLessonList(lessons []models.Lesson, completed map[string]bool) string {
	if len(lessons) == 0 {
		return "The lesson catalog is empty."
	}
	var sb strings.Builder
	var current models.Level
	for _, l := range lessons {
		if l.Level != current {
			if current != "" {
				sb.WriteString("\n")
			}
			current = l.Level
			fmt.Fprintf(&sb, "%s - %s\n", l.Level, models.LevelNames[l.Level])
		}
		mark := "▫️"
		if completed[l.ID] {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "%s %d. %s\n   /lesson %s\n", mark, l.OrderIndex, l.Title, l.ID)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// parseDoneArgs parses "<lesson id> <score>"
func parseDoneArgs(args string) (string, int, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", 0, fmt.Errorf("usage: /done <lesson id> <score>")
	}
	score, err := strconv.Atoi(fields[1])
	if err != nil || score < 0 || score > 100 {
		return "", 0, fmt.Errorf("score must be a number between 0 and 100")
	}
	return fields[0], score, nil
}

// parseAddressedArgs parses "<type> <item...>"
func parseAddressedArgs(args string) (models.AreaType, string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", fmt.Errorf("usage: /addressed <pronunciation|grammar|vocabulary> <item>")
	}
	areaType := models.AreaType(strings.ToLower(fields[0]))
	if !areaType.Valid() {
		return "", "", fmt.Errorf("unknown area type %q", fields[0])
	}
	return areaType, strings.Join(fields[1:], " "), nil
}

func parseHour(args string) (int, error) {
	hour, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("hour must be a number between 0 and 23")
	}
	return hour, nil
}

func parseToggle(args string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on", "yes", "1":
		return true, nil
	case "off", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("usage: /notify on|off")
}

func mean(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	total := 0
	for _, s := range scores {
		total += s
	}
	return total / len(scores)
}

// overallScore averages the three speech scores of one answer
func overallScore(res *speech.Result) int {
	return (res.PronunciationScore + res.GrammarScore + res.FluencyScore) / 3
}
