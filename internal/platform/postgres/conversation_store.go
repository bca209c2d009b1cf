package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/platform/logger"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// ConversationStore implements the store.ConversationStore interface using a
// PostgreSQL database.
type ConversationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewConversationStore creates a new PostgreSQL implementation of the
// store.ConversationStore interface.
func NewConversationStore(db store.DBTX, logger *slog.Logger) *ConversationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ConversationStore{
		db:     db,
		logger: logger.With(slog.String("component", "conversation_store")),
	}
}

// Ensure ConversationStore implements store.ConversationStore
var _ store.ConversationStore = (*ConversationStore)(nil)

// CreateConversation implements store.ConversationStore.CreateConversation.
func (s *ConversationStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := conv.Validate(); err != nil {
		log.Warn("conversation validation failed during create",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO conversations (id, tenant_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		conv.ID,
		conv.TenantID,
		conv.Title,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create conversation",
			slog.String("error", err.Error()),
			slog.String("conversation_id", conv.ID.String()))
		return MapError(err)
	}

	log.Debug("conversation created",
		slog.String("conversation_id", conv.ID.String()))
	return nil
}

// GetConversation implements store.ConversationStore.GetConversation.
// Returns store.ErrConversationNotFound if the conversation does not exist.
func (s *ConversationStore) GetConversation(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, tenant_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var conv domain.Conversation
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&conv.TenantID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConversationNotFound
		}
		return nil, err
	}

	return &conv, nil
}

// ListConversations implements store.ConversationStore.ListConversations.
func (s *ConversationStore) ListConversations(ctx context.Context, tenantID uuid.UUID) ([]*domain.Conversation, error) {
	query := `
		SELECT id, tenant_id, title, created_at, updated_at
		FROM conversations
		WHERE tenant_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []*domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.TenantID,
			&conv.Title,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		convs = append(convs, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return convs, nil
}

// AppendMessage implements store.ConversationStore.AppendMessage.
func (s *ConversationStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := msg.Validate(); err != nil {
		log.Warn("chat message validation failed during append",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO chat_messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.CreatedAt,
	)
	if err != nil {
		log.Error("failed to append chat message",
			slog.String("error", err.Error()),
			slog.String("conversation_id", msg.ConversationID.String()))
		return MapError(err)
	}

	// The conversation surfaces its last activity in listings.
	touch := `UPDATE conversations SET updated_at = NOW() WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, touch, msg.ConversationID); err != nil {
		log.Error("failed to touch conversation",
			slog.String("error", err.Error()),
			slog.String("conversation_id", msg.ConversationID.String()))
		return err
	}

	return nil
}

// RecentMessages implements store.ConversationStore.RecentMessages.
func (s *ConversationStore) RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []*domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat message rows: %w", err)
	}

	// The query reads newest-first; callers want the transcript in order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}

// WithTx implements store.ConversationStore.WithTx.
func (s *ConversationStore) WithTx(tx *sql.Tx) store.ConversationStore {
	return &ConversationStore{
		db:     tx,
		logger: s.logger,
	}
}
