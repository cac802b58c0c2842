// Package bot is the Telegram front end of the tutor.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/example/hablabot/internal/database"
	"github.com/example/hablabot/internal/logger"
	"github.com/example/hablabot/internal/progress"
	"github.com/example/hablabot/internal/recommendation"
	"github.com/example/hablabot/internal/scheduler"
	"github.com/example/hablabot/internal/spaced_repetition"
	"github.com/example/hablabot/internal/speech"
	"github.com/example/hablabot/internal/weakarea"
	"github.com/example/hablabot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAPI is the part of *tgbotapi.BotAPI the bot uses
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Tutor answers in a conversation
type Tutor interface {
	Reply(ctx context.Context, history []models.ConversationMessage, level models.Level, scenario string) (string, error)
}

// Deps are the services the bot talks to. Speech, Transcriber and Tutor are
// nil when no OpenAI key is configured.
type Deps struct {
	Users         *database.UserRepository
	Lessons       *database.LessonRepository
	UserLessons   *database.UserLessonRepository
	WeakAreas     *database.WeakAreaRepository
	Vocabulary    *database.VocabularyRepository
	Conversations *database.ConversationRepository
	Recommender   *recommendation.Service
	Tracker       *weakarea.Tracker
	Progress      *progress.Service
	Speech        *speech.Analyzer
	Transcriber   speech.Transcriber
	Tutor         Tutor
	AdminIDs      map[int64]bool
	Config        *BotConfig
	Log           *logger.Logger
}

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// lessonSession is a lesson the user is working through exercise by exercise
type lessonSession struct {
	LessonID  string
	Title     string
	Exercises []models.Exercise
	Current   int
	Scores    []int
}

// userSession is the in-memory conversation state of one user
type userSession struct {
	lesson         *lessonSession
	awaitingImport bool
}

// Bot represents the Telegram bot application
type Bot struct {
	api        TelegramAPI
	deps       Deps
	config     *BotConfig
	log        *logger.Logger
	sm2        *spaced_repetition.SM2
	reminders  *scheduler.Scheduler
	httpClient *http.Client

	mu       sync.Mutex
	sessions map[int64]*userSession
	now      func() time.Time

	// handlers outlive the polling context so Stop can let them finish
	runMu          sync.Mutex
	stopping       bool
	wg             sync.WaitGroup
	handlerCtx     context.Context
	cancelHandlers context.CancelFunc
}

// New creates a new bot instance
func New(api TelegramAPI, deps Deps) (*Bot, error) {
	if api == nil {
		return nil, fmt.Errorf("telegram api is required")
	}
	if deps.Users == nil || deps.Lessons == nil || deps.Recommender == nil || deps.Progress == nil {
		return nil, fmt.Errorf("bot dependencies are incomplete")
	}
	if deps.Config == nil {
		deps.Config = DefaultConfig()
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.AdminIDs == nil {
		deps.AdminIDs = map[int64]bool{}
	}
	handlerCtx, cancelHandlers := context.WithCancel(context.Background())
	return &Bot{
		api:        api,
		deps:       deps,
		config:     deps.Config,
		log:        deps.Log,
		sm2:        spaced_repetition.NewSM2(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sessions:   make(map[int64]*userSession),
		now:        func() time.Time { return time.Now().UTC() },

		handlerCtx:     handlerCtx,
		cancelHandlers: cancelHandlers,
	}, nil
}

// SetScheduler enables /remind; the scheduler itself needs the bot as its notifier
func (b *Bot) SetScheduler(s *scheduler.Scheduler) {
	b.reminders = s
}

// Start polls Telegram until ctx is canceled
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("Bot is polling for updates")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !b.track() {
				return nil
			}
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				hctx, cancel := context.WithTimeout(b.handlerCtx, b.config.HandlerTimeout)
				defer cancel()
				b.handleUpdate(hctx, u)
			}(update)
		}
	}
}

// track registers a handler goroutine unless the bot is stopping
func (b *Bot) track() bool {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.stopping {
		return false
	}
	b.wg.Add(1)
	return true
}

// Stop stops polling and waits for running handlers. Handlers still running
// when ctx expires are canceled.
func (b *Bot) Stop(ctx context.Context) error {
	b.runMu.Lock()
	b.stopping = true
	b.runMu.Unlock()

	b.api.StopReceivingUpdates()
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	defer b.cancelHandlers()
	select {
	case <-done:
		b.log.Info("Bot stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for handlers: %w", ctx.Err())
	}
}

func (b *Bot) session(userID int64) *userSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[userID]
	if !ok {
		s = &userSession{}
		b.sessions[userID] = s
	}
	return s
}

// withSession runs fn with the user's session locked
func (b *Bot) withSession(userID int64, fn func(s *userSession)) {
	s := b.session(userID)
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(s)
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(userID int64) bool {
	return b.deps.AdminIDs[userID]
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// SendReminder implements scheduler.Notifier. Private chats share the user's id.
func (b *Bot) SendReminder(userID int64, r scheduler.Reminder) error {
	msg := tgbotapi.NewMessage(userID, formatReminder(r))
	buttons := [][]MenuButton{}
	if r.Lesson != nil {
		buttons = append(buttons, []MenuButton{{Text: "▶️ Start lesson", CallbackData: "open:" + r.Lesson.ID}})
	}
	if r.DueWords > 0 {
		buttons = append(buttons, []MenuButton{{Text: "🔁 Review words", CallbackData: "review"}})
	}
	if len(buttons) > 0 {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	if err := b.sendMessage(msg); err != nil {
		return err
	}
	b.log.Debug("Reminder sent", "user_id", userID)
	return nil
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.From != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	default:
		return
	}
	if err != nil {
		b.log.Error("Error handling update", "update_id", update.UpdateID, "error", err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if err := b.ensureUser(ctx, message.From); err != nil {
		return err
	}
	switch {
	case message.IsCommand():
		return b.HandleCommand(ctx, message)
	case message.Document != nil:
		return b.handleDocument(ctx, message)
	case message.Voice != nil:
		return b.handleVoice(ctx, message)
	case message.Text != "":
		return b.handleText(ctx, message)
	}
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) error {
	name := from.FirstName
	if from.LastName != "" {
		name += " " + from.LastName
	}
	return b.deps.Users.Register(ctx, models.NewUser(from.ID, from.UserName, name))
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🎯 Next lesson", CallbackData: "next"},
			{Text: "📚 Lessons", CallbackData: "lessons"},
		},
		{
			{Text: "🩹 Weak areas", CallbackData: "weak"},
			{Text: "🔁 Review", CallbackData: "review"},
		},
		{
			{Text: "💬 Conversation", CallbackData: "talk"},
			{Text: "📊 Progress", CallbackData: "progress"},
		},
	}
}

func (b *Bot) showMainMenu(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Main menu - choose an option:")
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}
