package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/example/hablabot/internal/excel"
	"github.com/example/hablabot/internal/speech"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	voiceFilename  = "voice.ogg"
	maxImportBytes = 5 << 20
)

// download fetches a Telegram file, refusing anything above limit bytes
func (b *Bot) download(ctx context.Context, fileID string, limit int64) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file is larger than %d bytes", limit)
	}
	return data, nil
}

// handleVoice grades a spoken answer. With a lesson open the answer is checked
// against the current exercise; in a conversation it becomes the user's turn.
func (b *Bot) handleVoice(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	if int64(message.Voice.FileSize) > b.config.MaxVoiceBytes {
		return b.sendText(chatID, "That voice message is too long. Keep answers under a minute.")
	}

	var lesson *lessonSession
	b.withSession(userID, func(s *userSession) {
		if s.lesson != nil {
			cp := *s.lesson
			lesson = &cp
		}
	})

	if lesson == nil && b.deps.Transcriber != nil && b.deps.Conversations != nil {
		session, err := b.deps.Conversations.GetActive(ctx, userID)
		if err != nil {
			return b.reportError(chatID, err)
		}
		if session != nil {
			return b.talkByVoice(ctx, chatID, userID, message.Voice.FileID)
		}
	}

	if b.deps.Speech == nil {
		return b.sendText(chatID, "Voice analysis is not configured on this server.")
	}
	level, err := b.deps.Users.GetCurrentLevel(ctx, userID)
	if err != nil {
		return b.reportError(chatID, err)
	}
	audio, err := b.download(ctx, message.Voice.FileID, b.config.MaxVoiceBytes)
	if err != nil {
		return b.reportError(chatID, err)
	}

	req := speech.Request{
		UserID:   userID,
		Level:    level,
		Audio:    bytes.NewReader(audio),
		Filename: voiceFilename,
	}
	if lesson != nil {
		ex := lesson.Exercises[lesson.Current]
		req.LessonID = lesson.LessonID
		req.ExpectedText = ex.ExpectedResponse
		req.ExerciseType = ex.Type
	}
	res, err := b.deps.Speech.Analyze(ctx, req)
	if err != nil {
		return b.reportError(chatID, err)
	}
	if err := b.sendText(chatID, formatAnalysis(res)); err != nil {
		return err
	}
	// nothing was understood, let the user retry the same exercise
	if lesson == nil || res.Transcription == "" {
		return nil
	}
	return b.advanceLesson(ctx, chatID, userID, lesson.LessonID, lesson.Current, overallScore(res))
}

func (b *Bot) talkByVoice(ctx context.Context, chatID, userID int64, fileID string) error {
	audio, err := b.download(ctx, fileID, b.config.MaxVoiceBytes)
	if err != nil {
		return b.reportError(chatID, err)
	}
	text, err := b.deps.Transcriber.Transcribe(ctx, bytes.NewReader(audio), voiceFilename)
	if err != nil || strings.TrimSpace(text) == "" {
		b.log.Warn("Transcription failed", "user_id", userID, "error", err)
		return b.sendText(chatID, "Could not transcribe audio. Please try again.")
	}
	if err := b.sendText(chatID, "🗣 "+text); err != nil {
		return err
	}
	_, err = b.continueConversation(ctx, chatID, userID, text)
	return err
}

// handleDocument imports a lesson spreadsheet after an admin ran /import
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	awaiting := false
	b.withSession(userID, func(s *userSession) {
		awaiting = s.awaitingImport
		s.awaitingImport = false
	})
	if !awaiting || !b.isAdmin(userID) {
		return b.sendText(chatID, "I can only read voice messages. Admins start an import with /import.")
	}

	doc := message.Document
	ext := strings.ToLower(filepath.Ext(doc.FileName))
	if ext != ".xlsx" && ext != ".csv" {
		return b.sendText(chatID, "Please send an .xlsx or .csv file.")
	}
	data, err := b.download(ctx, doc.FileID, maxImportBytes)
	if err != nil {
		return b.reportError(chatID, err)
	}

	config := excel.DefaultImportConfig()
	var result *excel.ImportResult
	if ext == ".csv" {
		result, err = excel.ImportCSV(ctx, b.deps.Lessons, bytes.NewReader(data), config)
	} else {
		result, err = excel.ImportWorkbook(ctx, b.deps.Lessons, bytes.NewReader(data), config)
	}
	if err != nil {
		return b.reportError(chatID, err)
	}
	b.log.Info("Lessons imported", "user_id", userID, "file", doc.FileName,
		"created", result.Created, "updated", result.Updated, "errors", len(result.Errors))
	return b.sendText(chatID, formatImportResult(result))
}

func formatImportResult(r *excel.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📥 Import finished: %d rows, %d created, %d updated, %d skipped.",
		r.TotalProcessed, r.Created, r.Updated, r.Skipped)
	if len(r.Errors) > 0 {
		sb.WriteString("\nErrors:")
		for i, e := range r.Errors {
			if i == 10 {
				fmt.Fprintf(&sb, "\n... and %d more", len(r.Errors)-i)
				break
			}
			sb.WriteString("\n• " + e)
		}
	}
	return sb.String()
}
