package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/soluna-labs/mirage-api/internal/domain"
)

// ConversationStore defines the interface for chat conversation persistence.
type ConversationStore interface {
	// CreateConversation saves a new conversation to the store.
	CreateConversation(ctx context.Context, conv *domain.Conversation) error

	// GetConversation retrieves a conversation by its unique ID.
	// Returns ErrConversationNotFound if the conversation does not exist.
	GetConversation(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)

	// ListConversations retrieves the tenant's conversations, most recently
	// updated first.
	ListConversations(ctx context.Context, tenantID uuid.UUID) ([]*domain.Conversation, error)

	// AppendMessage saves a message and touches the conversation's updated
	// timestamp.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error

	// RecentMessages retrieves up to limit of the conversation's newest
	// messages, returned in chronological order.
	RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*domain.ChatMessage, error)

	// WithTx returns a new ConversationStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) ConversationStore
}
