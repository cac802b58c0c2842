package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const conversationColumns = `id, user_id, scenario, messages, active, created_at, updated_at`

// ConversationRepository persists tutor chat sessions
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository creates a new repository instance
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Start closes any running session of the user and opens a new one
func (r *ConversationRepository) Start(ctx context.Context, userID int64, scenario string, now time.Time) (*models.ConversationSession, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage("begin conversation", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE conversation_sessions SET active = FALSE, updated_at = ? WHERE user_id = ? AND active = TRUE`), now, userID); err != nil {
		tx.Rollback()
		return nil, apperr.Storage("close conversations", err)
	}
	session := &models.ConversationSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Scenario:  scenario,
		Messages:  "[]",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	insert := tx.Rebind(`INSERT INTO conversation_sessions (` + conversationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insert, session.ID, session.UserID, session.Scenario, session.Messages,
		session.Active, session.CreatedAt, session.UpdatedAt); err != nil {
		tx.Rollback()
		return nil, apperr.Storage("create conversation", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("commit conversation", err)
	}
	return session, nil
}

// GetActive returns the user's running session or nil
func (r *ConversationRepository) GetActive(ctx context.Context, userID int64) (*models.ConversationSession, error) {
	var session models.ConversationSession
	query := r.db.Rebind(`SELECT ` + conversationColumns + ` FROM conversation_sessions
		WHERE user_id = ? AND active = TRUE ORDER BY created_at DESC LIMIT 1`)
	err := r.db.GetContext(ctx, &session, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("get active conversation", err)
	}
	return &session, nil
}

// SaveMessages replaces the stored history of a session
func (r *ConversationRepository) SaveMessages(ctx context.Context, sessionID string, messages []models.ConversationMessage, now time.Time) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}
	query := r.db.Rebind(`UPDATE conversation_sessions SET messages = ?, updated_at = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, string(data), now, sessionID); err != nil {
		return apperr.Storage("save conversation", err)
	}
	return nil
}

// End deactivates the user's running session, if any
func (r *ConversationRepository) End(ctx context.Context, userID int64, now time.Time) error {
	query := r.db.Rebind(`UPDATE conversation_sessions SET active = FALSE, updated_at = ? WHERE user_id = ? AND active = TRUE`)
	if _, err := r.db.ExecContext(ctx, query, now, userID); err != nil {
		return apperr.Storage("end conversation", err)
	}
	return nil
}

// DecodeMessages parses the JSON history of a session
func DecodeMessages(session *models.ConversationSession) ([]models.ConversationMessage, error) {
	var messages []models.ConversationMessage
	if session == nil || session.Messages == "" {
		return messages, nil
	}
	if err := json.Unmarshal([]byte(session.Messages), &messages); err != nil {
		return nil, fmt.Errorf("failed to parse conversation messages: %w", err)
	}
	return messages, nil
}
