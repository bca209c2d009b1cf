package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/generation"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// chatHistoryLimit bounds how many prior messages are replayed to the model
// on each turn.
const chatHistoryLimit = 10

// chatSystemPrompt frames every model call.
const chatSystemPrompt = "You are a helpful assistant"

// ChatService provides tenant-scoped assistant conversations with persisted
// history.
type ChatService interface {
	// StartConversation creates an empty conversation for the tenant.
	StartConversation(ctx context.Context, tenantID uuid.UUID, title string) (*domain.Conversation, error)

	// ListConversations returns the tenant's conversations, most recently
	// active first.
	ListConversations(ctx context.Context, tenantID uuid.UUID) ([]*domain.Conversation, error)

	// History returns the conversation's recent transcript in chronological
	// order. A conversation owned by another tenant reads as not found.
	History(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*domain.ChatMessage, error)

	// SendMessage records the user's message, generates the assistant reply
	// from the conversation's recent history, records it, and returns it.
	// The user message is persisted even when reply generation fails.
	SendMessage(ctx context.Context, tenantID, conversationID uuid.UUID, content string) (*domain.ChatMessage, error)
}

// chatServiceImpl implements the ChatService interface
type chatServiceImpl struct {
	conversations store.ConversationStore
	text          generation.TextGenerator
	logger        *slog.Logger
}

// NewChatService creates a new ChatService.
// It returns an error if any of the required dependencies are nil.
func NewChatService(
	conversations store.ConversationStore,
	text generation.TextGenerator,
	logger *slog.Logger,
) (ChatService, error) {
	if conversations == nil {
		return nil, fmt.Errorf("conversation store cannot be nil")
	}
	if text == nil {
		return nil, fmt.Errorf("text generator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &chatServiceImpl{
		conversations: conversations,
		text:          text,
		logger:        logger.With(slog.String("component", "chat_service")),
	}, nil
}

// StartConversation implements ChatService.StartConversation.
func (s *chatServiceImpl) StartConversation(ctx context.Context, tenantID uuid.UUID, title string) (*domain.Conversation, error) {
	conv, err := domain.NewConversation(tenantID, title)
	if err != nil {
		return nil, NewAIGCServiceError("start_conversation", "invalid tenant", err)
	}

	if err := s.conversations.CreateConversation(ctx, conv); err != nil {
		return nil, NewAIGCServiceError("start_conversation", "failed to persist conversation", err)
	}

	return conv, nil
}

// ListConversations implements ChatService.ListConversations.
func (s *chatServiceImpl) ListConversations(ctx context.Context, tenantID uuid.UUID) ([]*domain.Conversation, error) {
	convs, err := s.conversations.ListConversations(ctx, tenantID)
	if err != nil {
		return nil, NewAIGCServiceError("list_conversations", "failed to list conversations", err)
	}
	return convs, nil
}

// History implements ChatService.History.
func (s *chatServiceImpl) History(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*domain.ChatMessage, error) {
	if _, err := s.authorizeConversation(ctx, tenantID, conversationID); err != nil {
		return nil, err
	}

	msgs, err := s.conversations.RecentMessages(ctx, conversationID, chatHistoryLimit)
	if err != nil {
		return nil, NewAIGCServiceError("history", "failed to load messages", err)
	}
	return msgs, nil
}

// SendMessage implements ChatService.SendMessage.
func (s *chatServiceImpl) SendMessage(ctx context.Context, tenantID, conversationID uuid.UUID, content string) (*domain.ChatMessage, error) {
	if _, err := s.authorizeConversation(ctx, tenantID, conversationID); err != nil {
		return nil, err
	}

	userMsg, err := domain.NewChatMessage(conversationID, domain.ChatRoleUser, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.conversations.AppendMessage(ctx, userMsg); err != nil {
		return nil, NewAIGCServiceError("send_message", "failed to persist message", err)
	}

	// History already includes the user message just appended.
	history, err := s.conversations.RecentMessages(ctx, conversationID, chatHistoryLimit)
	if err != nil {
		return nil, NewAIGCServiceError("send_message", "failed to load history", err)
	}

	reply, err := s.text.GenerateText(ctx, buildChatPrompt(history))
	if err != nil {
		// The user message stays recorded; a resend regenerates the reply
		// with it already in the history.
		return nil, NewAIGCServiceError("send_message", "failed to generate reply", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, NewAIGCServiceError("send_message", "empty reply", generation.ErrEmptyResult)
	}

	assistantMsg, err := domain.NewChatMessage(conversationID, domain.ChatRoleAssistant, reply)
	if err != nil {
		return nil, NewAIGCServiceError("send_message", "invalid reply", err)
	}
	if err := s.conversations.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, NewAIGCServiceError("send_message", "failed to persist reply", err)
	}

	return assistantMsg, nil
}

// authorizeConversation loads the conversation and verifies the tenant owns
// it. A foreign conversation reads as not found so conversation IDs cannot
// be probed across tenants.
func (s *chatServiceImpl) authorizeConversation(ctx context.Context, tenantID, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, NewAIGCServiceError("get_conversation", "failed to load conversation", err)
	}
	if conv.TenantID != tenantID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// buildChatPrompt renders the transcript as a single prompt, system framing
// first, ending with the assistant's open turn.
func buildChatPrompt(history []*domain.ChatMessage) string {
	var b strings.Builder
	b.WriteString(chatSystemPrompt)
	b.WriteString("\n\n")

	for _, msg := range history {
		switch msg.Role {
		case domain.ChatRoleUser:
			b.WriteString("User: ")
		case domain.ChatRoleAssistant:
			b.WriteString("Assistant: ")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	b.WriteString("Assistant:")
	return b.String()
}
