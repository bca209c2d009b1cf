package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewConversation(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	conv, err := NewConversation(tenantID, "small talk")
	if err != nil {
		t.Fatalf("NewConversation returned error: %v", err)
	}
	if conv.ID == uuid.Nil {
		t.Error("Expected a generated conversation ID")
	}
	if conv.TenantID != tenantID {
		t.Errorf("Expected tenant ID %v, got %v", tenantID, conv.TenantID)
	}
	if conv.Title != "small talk" {
		t.Errorf("Expected title 'small talk', got %q", conv.Title)
	}

	_, err = NewConversation(uuid.Nil, "")
	if err != ErrEmptyTenantID {
		t.Errorf("Expected error %v, got %v", ErrEmptyTenantID, err)
	}
}

func TestNewChatMessage(t *testing.T) {
	t.Parallel()

	conversationID := uuid.New()

	msg, err := NewChatMessage(conversationID, ChatRoleUser, "hello")
	if err != nil {
		t.Fatalf("NewChatMessage returned error: %v", err)
	}
	if msg.ConversationID != conversationID {
		t.Errorf("Expected conversation ID %v, got %v", conversationID, msg.ConversationID)
	}
	if msg.Role != ChatRoleUser {
		t.Errorf("Expected role %q, got %q", ChatRoleUser, msg.Role)
	}

	if _, err := NewChatMessage(conversationID, "system", "x"); err != ErrInvalidChatRole {
		t.Errorf("Expected error %v, got %v", ErrInvalidChatRole, err)
	}
	if _, err := NewChatMessage(conversationID, ChatRoleAssistant, ""); err != ErrEmptyChatContent {
		t.Errorf("Expected error %v, got %v", ErrEmptyChatContent, err)
	}
	if _, err := NewChatMessage(uuid.Nil, ChatRoleUser, "x"); err != ErrEmptyConversationID {
		t.Errorf("Expected error %v, got %v", ErrEmptyConversationID, err)
	}
}
