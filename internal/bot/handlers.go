package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/internal/catalog"
	"github.com/example/hablabot/internal/database"
	"github.com/example/hablabot/internal/spaced_repetition"
	"github.com/example/hablabot/internal/speech"
	"github.com/example/hablabot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleCommand dispatches a slash command
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	args := message.CommandArguments()

	switch message.Command() {
	case "start":
		if err := b.sendText(chatID, fmt.Sprintf("¡Bienvenido, %s! Let's learn Spanish by speaking it.", message.From.FirstName)); err != nil {
			return err
		}
		return b.showMainMenu(chatID)
	case "help":
		return b.sendText(chatID, helpText)
	case "next":
		return b.handleNext(ctx, chatID, userID)
	case "lessons":
		return b.handleLessons(ctx, chatID, userID)
	case "lesson":
		if strings.TrimSpace(args) == "" {
			return b.handleNext(ctx, chatID, userID)
		}
		return b.startLesson(ctx, chatID, userID, strings.TrimSpace(args))
	case "done":
		lessonID, score, err := parseDoneArgs(args)
		if err != nil {
			return b.sendText(chatID, err.Error())
		}
		return b.completeLesson(ctx, chatID, userID, lessonID, score)
	case "weak":
		return b.handleWeak(ctx, chatID, userID)
	case "addressed":
		areaType, item, err := parseAddressedArgs(args)
		if err != nil {
			return b.sendText(chatID, err.Error())
		}
		if err := b.deps.Recommender.MarkAddressed(ctx, userID, areaType, item); err != nil {
			return b.reportError(chatID, err)
		}
		return b.sendText(chatID, fmt.Sprintf("✅ Marked %q as addressed.", item))
	case "level":
		return b.handleLevel(ctx, chatID, userID, args)
	case "review":
		return b.handleReview(ctx, chatID, userID)
	case "talk":
		return b.startConversation(ctx, chatID, userID, args)
	case "stop":
		return b.handleStop(ctx, chatID, userID)
	case "progress":
		return b.handleProgress(ctx, chatID, userID)
	case "notify":
		enabled, err := parseToggle(args)
		if err != nil {
			return b.sendText(chatID, err.Error())
		}
		if err := b.deps.Users.SetNotificationEnabled(ctx, userID, enabled); err != nil {
			return b.reportError(chatID, err)
		}
		if enabled {
			return b.sendText(chatID, "🔔 Daily reminders are on. Use /time to pick the hour.")
		}
		return b.sendText(chatID, "🔕 Daily reminders are off.")
	case "time":
		hour, err := parseHour(args)
		if err != nil {
			return b.sendText(chatID, err.Error())
		}
		if err := b.deps.Users.SetNotificationHour(ctx, userID, hour); err != nil {
			return b.reportError(chatID, err)
		}
		return b.sendText(chatID, fmt.Sprintf("⏰ Reminders will arrive at %02d:00 UTC.", hour))
	case "remind":
		return b.handleRemind(ctx, chatID, userID)
	case "import":
		if !b.isAdmin(userID) {
			return b.sendText(chatID, "Only admins can import lessons.")
		}
		b.withSession(userID, func(s *userSession) { s.awaitingImport = true })
		return b.sendText(chatID, "Send the lesson spreadsheet (.xlsx or .csv) as a document.\n"+
			"Columns: level, order, title, description, scenario, vocabulary (es=en;es=en).")
	default:
		return b.sendText(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

// HandleCallback handles inline keyboard presses
func (b *Bot) HandleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	// Answer first so the client stops the spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn("Failed to answer callback", "error", err)
	}
	if query.Message == nil || query.From == nil {
		return nil
	}
	chatID := query.Message.Chat.ID
	userID := query.From.ID
	if err := b.ensureUser(ctx, query.From); err != nil {
		return err
	}
	data := query.Data

	switch {
	case data == "menu":
		return b.showMainMenu(chatID)
	case data == "next":
		return b.handleNext(ctx, chatID, userID)
	case data == "lessons":
		return b.handleLessons(ctx, chatID, userID)
	case data == "weak":
		return b.handleWeak(ctx, chatID, userID)
	case data == "review":
		return b.handleReview(ctx, chatID, userID)
	case data == "talk":
		return b.startConversation(ctx, chatID, userID, "")
	case data == "progress":
		return b.handleProgress(ctx, chatID, userID)
	case data == "skip":
		return b.skipExercise(ctx, chatID, userID)
	case strings.HasPrefix(data, "open:"):
		return b.startLesson(ctx, chatID, userID, strings.TrimPrefix(data, "open:"))
	case strings.HasPrefix(data, "level:"):
		return b.handleLevel(ctx, chatID, userID, strings.TrimPrefix(data, "level:"))
	case strings.HasPrefix(data, "addr:"):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, "addr:"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid weak area id in callback %q: %w", data, err)
		}
		return b.markAddressedByID(ctx, chatID, userID, id)
	case strings.HasPrefix(data, "rev:"):
		parts := strings.Split(strings.TrimPrefix(data, "rev:"), ":")
		if len(parts) != 2 {
			return fmt.Errorf("invalid review callback %q", data)
		}
		itemID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid vocabulary id in callback %q: %w", data, err)
		}
		quality, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("invalid quality in callback %q: %w", data, err)
		}
		return b.gradeWord(ctx, chatID, userID, itemID, quality)
	}
	b.log.Warn("Unknown callback", "data", data)
	return nil
}

// reportError tells the user what went wrong and hands internal errors back for logging
func (b *Bot) reportError(chatID int64, err error) error {
	if apperr.IsNotFound(err) {
		return b.sendText(chatID, "❓ "+err.Error())
	}
	if sendErr := b.sendText(chatID, "⚠️ Something went wrong, please try again later."); sendErr != nil {
		b.log.Warn("Failed to report error", "error", sendErr)
	}
	return err
}

func (b *Bot) handleNext(ctx context.Context, chatID, userID int64) error {
	rec, err := b.deps.Recommender.GetRecommendation(ctx, userID)
	if err != nil {
		return b.reportError(chatID, err)
	}
	msg := tgbotapi.NewMessage(chatID, formatRecommendation(rec))
	var buttons [][]MenuButton
	if rec.Lesson != nil {
		buttons = append(buttons, []MenuButton{{Text: "▶️ Start " + rec.Lesson.Title, CallbackData: "open:" + rec.Lesson.ID}})
	}
	if len(rec.WeakAreas) > 0 {
		buttons = append(buttons, []MenuButton{{Text: "🩹 Weak areas", CallbackData: "weak"}})
	}
	if len(buttons) > 0 {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	return b.sendMessage(msg)
}

func (b *Bot) handleLessons(ctx context.Context, chatID, userID int64) error {
	lessons, err := b.deps.Lessons.ListAll(ctx)
	if err != nil {
		return b.reportError(chatID, err)
	}
	completed := map[string]bool{}
	if b.deps.UserLessons != nil {
		completed, err = b.deps.UserLessons.GetCompletedLessonIDs(ctx, userID)
		if err != nil {
			return b.reportError(chatID, err)
		}
	}
	return b.sendText(chatID, formatLessonList(lessons, completed))
}

func (b *Bot) handleWeak(ctx context.Context, chatID, userID int64) error {
	rows, err := b.deps.Tracker.Outstanding(ctx, userID, b.config.WeakAreaListSize)
	if err != nil {
		return b.reportError(chatID, err)
	}
	msg := tgbotapi.NewMessage(chatID, formatWeakAreas(rows))
	if len(rows) > 0 {
		var buttons [][]MenuButton
		for _, w := range rows {
			buttons = append(buttons, []MenuButton{{
				Text:         "✅ " + w.SpecificItem,
				CallbackData: fmt.Sprintf("addr:%d", w.ID),
			}})
		}
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	return b.sendMessage(msg)
}

func (b *Bot) markAddressedByID(ctx context.Context, chatID, userID, id int64) error {
	area, err := b.deps.WeakAreas.GetByID(ctx, userID, id)
	if err != nil {
		return b.reportError(chatID, err)
	}
	if err := b.deps.Recommender.MarkAddressed(ctx, userID, area.AreaType, area.SpecificItem); err != nil {
		return b.reportError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Marked %q as addressed.", area.SpecificItem))
}

func (b *Bot) handleLevel(ctx context.Context, chatID, userID int64, args string) error {
	if strings.TrimSpace(args) == "" {
		current, err := b.deps.Users.GetCurrentLevel(ctx, userID)
		if err != nil {
			return b.reportError(chatID, err)
		}
		var row []MenuButton
		for _, lvl := range models.Levels {
			row = append(row, MenuButton{Text: string(lvl), CallbackData: "level:" + string(lvl)})
		}
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Your level is %s (%s). Pick a new one:", current, models.LevelNames[current]))
		msg.ReplyMarkup = createKeyboard([][]MenuButton{row})
		return b.sendMessage(msg)
	}
	level, err := models.ParseLevel(args)
	if err != nil {
		return b.sendText(chatID, "Level must be one of A1, A2, B1, B2, C1, C2.")
	}
	if err := b.deps.Users.SetLevel(ctx, userID, level); err != nil {
		return b.reportError(chatID, err)
	}
	b.log.Info("Level changed", "user_id", userID, "level", level)
	return b.sendText(chatID, fmt.Sprintf("Level set to %s (%s). Use /next for your next lesson.", level, models.LevelNames[level]))
}

func (b *Bot) handleProgress(ctx context.Context, chatID, userID int64) error {
	level, err := b.deps.Users.GetCurrentLevel(ctx, userID)
	if err != nil {
		return b.reportError(chatID, err)
	}
	sum, err := b.deps.Progress.Summary(ctx, userID, b.config.SummaryDays, b.now())
	if err != nil {
		return b.reportError(chatID, err)
	}
	return b.sendText(chatID, formatSummary(sum, level, b.config.SummaryDays))
}

func (b *Bot) handleRemind(ctx context.Context, chatID, userID int64) error {
	if b.reminders == nil {
		return b.sendText(chatID, "Reminders are disabled on this server.")
	}
	sent, err := b.reminders.RunManualCheck(ctx, userID)
	if err != nil {
		return b.reportError(chatID, err)
	}
	if !sent {
		return b.sendText(chatID, "Nothing to remind you about right now. 🎉")
	}
	return nil
}

func (b *Bot) handleStop(ctx context.Context, chatID, userID int64) error {
	stopped := false
	b.withSession(userID, func(s *userSession) {
		if s.lesson != nil {
			s.lesson = nil
			stopped = true
		}
		s.awaitingImport = false
	})
	if b.deps.Conversations != nil {
		active, err := b.deps.Conversations.GetActive(ctx, userID)
		if err != nil {
			return b.reportError(chatID, err)
		}
		if active != nil {
			if err := b.deps.Conversations.End(ctx, userID, b.now()); err != nil {
				return b.reportError(chatID, err)
			}
			stopped = true
		}
	}
	if !stopped {
		return b.sendText(chatID, "Nothing to stop.")
	}
	return b.sendText(chatID, "👋 Stopped. /next when you are ready.")
}

// startLesson opens a lesson and walks the user into its first exercise
func (b *Bot) startLesson(ctx context.Context, chatID, userID int64, lessonID string) error {
	lesson, _, err := b.deps.Progress.OpenLesson(ctx, userID, lessonID, b.now())
	if err != nil {
		return b.reportError(chatID, err)
	}
	content, err := catalog.DecodeContent(lesson)
	if err != nil {
		return b.reportError(chatID, err)
	}
	if err := b.sendText(chatID, formatLessonIntro(lesson, content)); err != nil {
		return err
	}
	if len(content.Exercises) == 0 {
		return b.sendText(chatID, fmt.Sprintf("This lesson has no exercises. Finish it with /done %s <score>.", lesson.ID))
	}
	b.withSession(userID, func(s *userSession) {
		s.lesson = &lessonSession{
			LessonID:  lesson.ID,
			Title:     lesson.Title,
			Exercises: content.Exercises,
		}
	})
	return b.sendExercise(chatID, 0, content.Exercises)
}

func (b *Bot) sendExercise(chatID int64, index int, exercises []models.Exercise) error {
	msg := tgbotapi.NewMessage(chatID, formatExercise(index, len(exercises), exercises[index]))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "⏭ Skip", CallbackData: "skip"}}})
	return b.sendMessage(msg)
}

// advanceLesson stores the score of the current exercise and moves on,
// completing the lesson after the last one. A negative score means skipped.
// Answers for an exercise the user already moved past are ignored.
func (b *Bot) advanceLesson(ctx context.Context, chatID, userID int64, lessonID string, index, score int) error {
	var (
		next     int
		finished *lessonSession
		current  *lessonSession
	)
	b.withSession(userID, func(s *userSession) {
		if s.lesson == nil || s.lesson.LessonID != lessonID || s.lesson.Current != index {
			return
		}
		if score >= 0 {
			s.lesson.Scores = append(s.lesson.Scores, score)
		}
		s.lesson.Current++
		if s.lesson.Current >= len(s.lesson.Exercises) {
			finished = s.lesson
			s.lesson = nil
			return
		}
		current = s.lesson
		next = s.lesson.Current
	})

	switch {
	case finished != nil:
		if len(finished.Scores) == 0 {
			return b.sendText(chatID, "Lesson finished without answers, so it was not marked completed. Try it again with /next.")
		}
		return b.completeLesson(ctx, chatID, userID, finished.LessonID, mean(finished.Scores))
	case current != nil:
		return b.sendExercise(chatID, next, current.Exercises)
	}
	return nil
}

func (b *Bot) skipExercise(ctx context.Context, chatID, userID int64) error {
	var (
		lessonID string
		index    int
	)
	b.withSession(userID, func(s *userSession) {
		if s.lesson != nil {
			lessonID, index = s.lesson.LessonID, s.lesson.Current
		}
	})
	if lessonID == "" {
		return b.sendText(chatID, "No lesson in progress. /next picks one for you.")
	}
	return b.advanceLesson(ctx, chatID, userID, lessonID, index, -1)
}

func (b *Bot) completeLesson(ctx context.Context, chatID, userID int64, lessonID string, score int) error {
	added, err := b.deps.Progress.CompleteLesson(ctx, userID, lessonID, score, b.now())
	if err != nil {
		return b.reportError(chatID, err)
	}
	text := fmt.Sprintf("🏁 Lesson completed with score %d.", score)
	if added > 0 {
		text += fmt.Sprintf(" %d new words were added to /review.", added)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "🎯 Next lesson", CallbackData: "next"}}})
	return b.sendMessage(msg)
}

func (b *Bot) handleReview(ctx context.Context, chatID, userID int64) error {
	items, err := b.deps.Vocabulary.ListByUser(ctx, userID)
	if err != nil {
		return b.reportError(chatID, err)
	}
	due := b.sm2.Due(items, b.now(), b.config.ReviewBatchSize)
	if len(due) == 0 {
		return b.sendText(chatID, "No words are due. Complete a lesson to add new ones.")
	}
	if err := b.sendText(chatID, fmt.Sprintf("🔁 %d words to review. How well did you remember each one?", len(due))); err != nil {
		return err
	}
	for _, item := range due {
		if err := b.sendReviewCard(chatID, item); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) sendReviewCard(chatID int64, item models.VocabularyItem) error {
	// translation hidden behind a spoiler
	text := tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, item.Word) + "\n||" +
		tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, item.Translation) + "||"
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	grade := func(label string, q spaced_repetition.QualityResponse) MenuButton {
		return MenuButton{Text: label, CallbackData: fmt.Sprintf("rev:%d:%d", item.ID, q)}
	}
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{
		grade("❌ Forgot", spaced_repetition.QualityBlackout),
		grade("😕 Hard", spaced_repetition.QualityCorrectDifficult),
		grade("🙂 Good", spaced_repetition.QualityCorrectHesitation),
		grade("😎 Easy", spaced_repetition.QualityPerfect),
	}})
	return b.sendMessage(msg)
}

func (b *Bot) gradeWord(ctx context.Context, chatID, userID, itemID int64, quality int) error {
	q, err := spaced_repetition.ParseQuality(quality)
	if err != nil {
		return err
	}
	item, err := b.deps.Vocabulary.GetByID(ctx, userID, itemID)
	if err != nil {
		return b.reportError(chatID, err)
	}
	b.sm2.Review(item, q, b.now())
	if err := b.deps.Vocabulary.UpdateSchedule(ctx, item); err != nil {
		return b.reportError(chatID, err)
	}
	text := fmt.Sprintf("%s - next review in %d day(s).", item.Word, item.IntervalDays)
	if b.sm2.IsMastered(item) {
		text += " ⭐ Mastered!"
	}
	return b.sendText(chatID, text)
}

func (b *Bot) startConversation(ctx context.Context, chatID, userID int64, scenario string) error {
	if b.deps.Tutor == nil || b.deps.Conversations == nil {
		return b.sendText(chatID, "The conversation tutor is not configured on this server.")
	}
	scenario = strings.TrimSpace(scenario)
	if scenario == "" {
		scenario = "casual conversation"
	}
	if _, err := b.deps.Conversations.Start(ctx, userID, scenario, b.now()); err != nil {
		return b.reportError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("💬 Let's talk: %s. Write or speak in Spanish, /stop to finish.", scenario))
}

// continueConversation sends the user's turn to the tutor and stores both turns.
// It reports false when the user has no running conversation.
func (b *Bot) continueConversation(ctx context.Context, chatID, userID int64, text string) (bool, error) {
	if b.deps.Tutor == nil || b.deps.Conversations == nil {
		return false, nil
	}
	session, err := b.deps.Conversations.GetActive(ctx, userID)
	if err != nil {
		return true, b.reportError(chatID, err)
	}
	if session == nil {
		return false, nil
	}
	history, err := database.DecodeMessages(session)
	if err != nil {
		return true, b.reportError(chatID, err)
	}
	level, err := b.deps.Users.GetCurrentLevel(ctx, userID)
	if err != nil {
		return true, b.reportError(chatID, err)
	}
	history = append(history, models.ConversationMessage{Role: "user", Content: text})
	reply, err := b.deps.Tutor.Reply(ctx, history, level, session.Scenario)
	if err != nil {
		b.log.Error("Tutor reply failed", "user_id", userID, "error", err)
		return true, b.sendText(chatID, "Lo siento, I could not answer right now. Try again in a moment.")
	}
	history = append(history, models.ConversationMessage{Role: "assistant", Content: reply})
	if err := b.deps.Conversations.SaveMessages(ctx, session.ID, history, b.now()); err != nil {
		b.log.Error("Failed to save conversation", "session", session.ID, "error", err)
	}
	return true, b.sendText(chatID, reply)
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) error {
	var lesson *lessonSession
	b.withSession(message.From.ID, func(s *userSession) {
		if s.lesson != nil {
			cp := *s.lesson
			lesson = &cp
		}
	})
	if lesson != nil {
		return b.answerByText(ctx, message.Chat.ID, message.From.ID, lesson, message.Text)
	}

	handled, err := b.continueConversation(ctx, message.Chat.ID, message.From.ID, message.Text)
	if handled || err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(message.Chat.ID, "Send a voice message to practice, or pick an option:")
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}

// answerByText grades a typed answer to the current exercise
func (b *Bot) answerByText(ctx context.Context, chatID, userID int64, lesson *lessonSession, text string) error {
	ex := lesson.Exercises[lesson.Current]
	accepted := append([]string{ex.ExpectedResponse}, ex.AcceptableResponses...)
	score := speech.GradeText(text, accepted)
	reply := fmt.Sprintf("✍️ Score %d.", score)
	if ex.ExpectedResponse != "" && score < 100 {
		reply += " Expected: " + ex.ExpectedResponse
	}
	if err := b.sendText(chatID, reply); err != nil {
		return err
	}
	return b.advanceLesson(ctx, chatID, userID, lesson.LessonID, lesson.Current, score)
}
