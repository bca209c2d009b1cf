package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/generation"
	"github.com/soluna-labs/mirage-api/internal/store"
)

func newTestChatService(t *testing.T, conversations *MockConversationStore, text *MockTextGenerator) ChatService {
	t.Helper()

	svc, err := NewChatService(conversations, text, testLogger())
	require.NoError(t, err)
	return svc
}

// ownedConversation builds a conversation for the tenant and primes the store
// mock to return it.
func ownedConversation(t *testing.T, conversations *MockConversationStore, tenantID uuid.UUID) *domain.Conversation {
	t.Helper()

	conv, err := domain.NewConversation(tenantID, "small talk")
	require.NoError(t, err)
	conversations.On("GetConversation", mock.Anything, conv.ID).Return(conv, nil)
	return conv
}

func TestNewChatService_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewChatService(nil, new(MockTextGenerator), testLogger())
	assert.Error(t, err)

	_, err = NewChatService(new(MockConversationStore), nil, testLogger())
	assert.Error(t, err)

	_, err = NewChatService(new(MockConversationStore), new(MockTextGenerator), nil)
	assert.Error(t, err)
}

func TestChatService_StartConversation(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("creates and persists the conversation", func(t *testing.T) {
		conversations := new(MockConversationStore)
		conversations.On("CreateConversation", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
			return c.TenantID == tenantID && c.Title == "first chat"
		})).Return(nil)

		svc := newTestChatService(t, conversations, new(MockTextGenerator))

		conv, err := svc.StartConversation(ctx, tenantID, "first chat")
		require.NoError(t, err)
		assert.Equal(t, tenantID, conv.TenantID)
		assert.NotEqual(t, uuid.Nil, conv.ID)
		conversations.AssertExpectations(t)
	})

	t.Run("rejects an empty tenant", func(t *testing.T) {
		svc := newTestChatService(t, new(MockConversationStore), new(MockTextGenerator))

		_, err := svc.StartConversation(ctx, uuid.Nil, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrEmptyTenantID))
	})
}

func TestChatService_SendMessage(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("persists both turns and replies from history", func(t *testing.T) {
		conversations := new(MockConversationStore)
		conv := ownedConversation(t, conversations, tenantID)

		conversations.On("AppendMessage", mock.Anything, mock.MatchedBy(func(m *domain.ChatMessage) bool {
			return m.Role == domain.ChatRoleUser && m.Content == "what rhymes with orange?"
		})).Return(nil).Once()

		history := []*domain.ChatMessage{
			{ConversationID: conv.ID, Role: domain.ChatRoleUser, Content: "hello"},
			{ConversationID: conv.ID, Role: domain.ChatRoleAssistant, Content: "hi there"},
			{ConversationID: conv.ID, Role: domain.ChatRoleUser, Content: "what rhymes with orange?"},
		}
		conversations.On("RecentMessages", mock.Anything, conv.ID, chatHistoryLimit).
			Return(history, nil)

		text := new(MockTextGenerator)
		text.On("GenerateText", mock.Anything, mock.MatchedBy(func(prompt string) bool {
			// The prompt replays the transcript and leaves the assistant's
			// turn open.
			return strings.Contains(prompt, "User: hello") &&
				strings.Contains(prompt, "Assistant: hi there") &&
				strings.Contains(prompt, "User: what rhymes with orange?") &&
				strings.HasSuffix(prompt, "Assistant:")
		})).Return("Nothing rhymes with orange.", nil)

		conversations.On("AppendMessage", mock.Anything, mock.MatchedBy(func(m *domain.ChatMessage) bool {
			return m.Role == domain.ChatRoleAssistant && m.Content == "Nothing rhymes with orange."
		})).Return(nil).Once()

		svc := newTestChatService(t, conversations, text)

		reply, err := svc.SendMessage(ctx, tenantID, conv.ID, "what rhymes with orange?")
		require.NoError(t, err)
		assert.Equal(t, domain.ChatRoleAssistant, reply.Role)
		assert.Equal(t, "Nothing rhymes with orange.", reply.Content)
		conversations.AssertExpectations(t)
		text.AssertExpectations(t)
	})

	t.Run("foreign conversation reads as not found", func(t *testing.T) {
		conversations := new(MockConversationStore)
		conv := ownedConversation(t, conversations, uuid.New()) // other tenant

		svc := newTestChatService(t, conversations, new(MockTextGenerator))

		_, err := svc.SendMessage(ctx, tenantID, conv.ID, "hello?")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConversationNotFound))
		conversations.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything)
	})

	t.Run("missing conversation reads as not found", func(t *testing.T) {
		conversations := new(MockConversationStore)
		conversations.On("GetConversation", mock.Anything, mock.Anything).
			Return(nil, store.ErrConversationNotFound)

		svc := newTestChatService(t, conversations, new(MockTextGenerator))

		_, err := svc.SendMessage(ctx, tenantID, uuid.New(), "hello?")
		assert.True(t, errors.Is(err, ErrConversationNotFound))
	})

	t.Run("reply failure keeps the user message recorded", func(t *testing.T) {
		conversations := new(MockConversationStore)
		conv := ownedConversation(t, conversations, tenantID)

		conversations.On("AppendMessage", mock.Anything, mock.MatchedBy(func(m *domain.ChatMessage) bool {
			return m.Role == domain.ChatRoleUser
		})).Return(nil).Once()
		conversations.On("RecentMessages", mock.Anything, conv.ID, chatHistoryLimit).
			Return([]*domain.ChatMessage{
				{ConversationID: conv.ID, Role: domain.ChatRoleUser, Content: "hello"},
			}, nil)

		text := new(MockTextGenerator)
		text.On("GenerateText", mock.Anything, mock.Anything).
			Return("", generation.ErrGenerationFailed)

		svc := newTestChatService(t, conversations, text)

		_, err := svc.SendMessage(ctx, tenantID, conv.ID, "hello")
		require.Error(t, err)
		assert.True(t, errors.Is(err, generation.ErrGenerationFailed))

		// Exactly one append: the user turn, never an assistant turn.
		conversations.AssertNumberOfCalls(t, "AppendMessage", 1)
	})

	t.Run("empty message is rejected before persistence", func(t *testing.T) {
		conversations := new(MockConversationStore)
		conv := ownedConversation(t, conversations, tenantID)

		svc := newTestChatService(t, conversations, new(MockTextGenerator))

		_, err := svc.SendMessage(ctx, tenantID, conv.ID, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		conversations.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything)
	})
}

func TestChatService_History(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("returns the recent transcript", func(t *testing.T) {
		conversations := new(MockConversationStore)
		conv := ownedConversation(t, conversations, tenantID)

		history := []*domain.ChatMessage{
			{ConversationID: conv.ID, Role: domain.ChatRoleUser, Content: "hello"},
			{ConversationID: conv.ID, Role: domain.ChatRoleAssistant, Content: "hi there"},
		}
		conversations.On("RecentMessages", mock.Anything, conv.ID, chatHistoryLimit).
			Return(history, nil)

		svc := newTestChatService(t, conversations, new(MockTextGenerator))

		msgs, err := svc.History(ctx, tenantID, conv.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "hello", msgs[0].Content)
	})

	t.Run("foreign conversation reads as not found", func(t *testing.T) {
		conversations := new(MockConversationStore)
		conv := ownedConversation(t, conversations, uuid.New())

		svc := newTestChatService(t, conversations, new(MockTextGenerator))

		_, err := svc.History(ctx, tenantID, conv.ID)
		assert.True(t, errors.Is(err, ErrConversationNotFound))
	})
}
