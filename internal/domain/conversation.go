package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Chat message roles. The transcript only carries the two conversational
// roles; the system prompt lives in the chat service, not in storage.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Common validation errors for Conversation and ChatMessage
var (
	ErrEmptyConversationID = errors.New("conversation ID cannot be empty")
	ErrEmptyChatContent    = errors.New("chat message content cannot be empty")
	ErrInvalidChatRole     = errors.New("chat message role must be user or assistant")
)

// Conversation is a tenant-owned chat thread with the assistant.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates an empty conversation for the tenant.
func NewConversation(tenantID uuid.UUID, title string) (*Conversation, error) {
	if tenantID == uuid.Nil {
		return nil, ErrEmptyTenantID
	}
	now := time.Now().UTC()
	return &Conversation{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks if the Conversation has valid data.
func (c *Conversation) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyConversationID
	}
	if c.TenantID == uuid.Nil {
		return ErrEmptyTenantID
	}
	return nil
}

// ChatMessage is one turn of a conversation, authored by the user or the
// assistant.
type ChatMessage struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewChatMessage creates a message for the conversation with the given role
// and content.
func NewChatMessage(conversationID uuid.UUID, role, content string) (*ChatMessage, error) {
	msg := &ChatMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// Validate checks if the ChatMessage has valid data.
func (m *ChatMessage) Validate() error {
	if m.ConversationID == uuid.Nil {
		return ErrEmptyConversationID
	}
	if m.Role != ChatRoleUser && m.Role != ChatRoleAssistant {
		return ErrInvalidChatRole
	}
	if m.Content == "" {
		return ErrEmptyChatContent
	}
	return nil
}
