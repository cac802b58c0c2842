package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/hablabot/internal/ai"
	"github.com/example/hablabot/internal/bot"
	"github.com/example/hablabot/internal/catalog"
	"github.com/example/hablabot/internal/config"
	"github.com/example/hablabot/internal/database"
	"github.com/example/hablabot/internal/excel"
	"github.com/example/hablabot/internal/logger"
	"github.com/example/hablabot/internal/progress"
	"github.com/example/hablabot/internal/progression"
	"github.com/example/hablabot/internal/recommendation"
	"github.com/example/hablabot/internal/scheduler"
	"github.com/example/hablabot/internal/speech"
	"github.com/example/hablabot/internal/weakarea"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
)

func main() {
	importPath := flag.String("import", "", "import lessons from an .xlsx or .csv file and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logg.Sync()

	db, err := database.Open(cfg.DBType, cfg.DSN())
	if err != nil {
		logg.Fatal("Failed to connect to database", "driver", cfg.DBType, "error", err)
	}
	defer db.Close()

	lessons := database.NewLessonRepository(db)
	if *importPath != "" {
		if err := runImport(lessons, *importPath, logg); err != nil {
			logg.Fatal("Import failed", "file", *importPath, "error", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := catalog.EnsureSeeded(ctx, lessons, cfg.CatalogSeedFile, logg); err != nil {
		logg.Fatal("Failed to seed lesson catalog", "error", err)
	}

	b, reminders, err := build(cfg, db, lessons, logg)
	if err != nil {
		logg.Fatal("Failed to create bot", "error", err)
	}

	if reminders != nil {
		if err := reminders.Start(); err != nil {
			logg.Fatal("Failed to start scheduler", "error", err)
		}
		logg.Info("Reminder scheduler started",
			"start_hour", cfg.NotificationStartHour, "end_hour", cfg.NotificationEndHour)
	}

	// closed once the shutdown goroutine is finished
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logg.Info("Received signal, shutting down", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if reminders != nil {
			reminders.Stop()
		}
		if err := b.Stop(shutdownCtx); err != nil {
			logg.Error("Error during shutdown", "error", err)
		}
		close(done)
	}()

	logg.Info("Bot started", "db", cfg.DBType, "speech", cfg.OpenAIKey != "")
	if err := b.Start(ctx); ctx.Err() == nil {
		// polling ended on its own, run the same shutdown path as a signal
		logg.Error("Bot stopped unexpectedly", "error", err)
		sigChan <- syscall.SIGTERM
	}
	<-done
	logg.Info("Shutdown complete")
}

// build wires repositories, services and the Telegram front end
func build(cfg *config.Config, db *sqlx.DB, lessons *database.LessonRepository, logg *logger.Logger) (*bot.Bot, *scheduler.Scheduler, error) {
	users := database.NewUserRepository(db)
	userLessons := database.NewUserLessonRepository(db)
	weakAreas := database.NewWeakAreaRepository(db)
	vocabulary := database.NewVocabularyRepository(db)

	tracker := weakarea.NewTracker(weakAreas)
	recommender := recommendation.NewService(users, userLessons, progression.NewPolicy(lessons), tracker)
	progressSvc := progress.NewService(lessons, userLessons, database.NewDailyProgressRepository(db), vocabulary, logg.With("component", "progress"))

	deps := bot.Deps{
		Users:         users,
		Lessons:       lessons,
		UserLessons:   userLessons,
		WeakAreas:     weakAreas,
		Vocabulary:    vocabulary,
		Conversations: database.NewConversationRepository(db),
		Recommender:   recommender,
		Tracker:       tracker,
		Progress:      progressSvc,
		AdminIDs:      cfg.AdminUserIDs,
		Config:        bot.DefaultConfig(),
		Log:           logg.With("component", "bot"),
	}

	if cfg.OpenAIKey != "" {
		client, err := ai.New(cfg.OpenAIKey, cfg.ChatModel, cfg.TranscribeModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		deps.Speech = speech.NewAnalyzer(client, client, database.NewRecordingRepository(db), recommender, logg.With("component", "speech"))
		deps.Transcriber = client
		deps.Tutor = client
	} else {
		logg.Warn("OPENAI_API_KEY is not set, voice analysis and the tutor are disabled")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	api.Debug = cfg.Env == "debug"
	logg.Info("Authorized on Telegram", "account", api.Self.UserName)

	b, err := bot.New(api, deps)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.SchedulerEnabled {
		return b, nil, nil
	}
	reminders := scheduler.New(b, users, recommender, vocabulary,
		cfg.NotificationStartHour, cfg.NotificationEndHour, logg.With("component", "scheduler"))
	b.SetScheduler(reminders)
	return b, reminders, nil
}

func runImport(lessons *database.LessonRepository, path string, logg *logger.Logger) error {
	importConfig := excel.DefaultImportConfig()
	importConfig.FilePath = path
	result, err := excel.ImportLessons(context.Background(), lessons, importConfig)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		logg.Warn("Row skipped", "error", e)
	}
	logg.Info("Import finished", "processed", result.TotalProcessed, "created", result.Created,
		"updated", result.Updated, "skipped", result.Skipped, "errors", len(result.Errors))
	return nil
}
