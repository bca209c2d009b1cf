package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/soluna-labs/mirage-api/internal/api/shared"
	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/service"
)

// ChatHandler handles the assistant chat API requests.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler with the given dependencies.
func NewChatHandler(chatService service.ChatService) (*ChatHandler, error) {
	if chatService == nil {
		return nil, fmt.Errorf("chat service cannot be nil")
	}
	return &ChatHandler{chatService: chatService}, nil
}

// CreateConversation handles POST /chat/conversations.
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := getTenantIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req ConversationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	conv, err := h.chatService.StartConversation(r.Context(), tenantID, req.Title)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create conversation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, conv)
}

// ListConversations handles GET /chat/conversations.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := getTenantIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	convs, err := h.chatService.ListConversations(r.Context(), tenantID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list conversations")
		return
	}
	if convs == nil {
		convs = []*domain.Conversation{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, convs)
}

// GetMessages handles GET /chat/conversations/{conversationID}/messages.
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	tenantID, conversationID, ok := requireTenantAndConversationID(w, r)
	if !ok {
		return
	}

	msgs, err := h.chatService.History(r.Context(), tenantID, conversationID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []*domain.ChatMessage{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, msgs)
}

// SendMessage handles POST /chat/conversations/{conversationID}/messages.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	tenantID, conversationID, ok := requireTenantAndConversationID(w, r)
	if !ok {
		return
	}

	var req ChatMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	reply, err := h.chatService.SendMessage(r.Context(), tenantID, conversationID, req.Content)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to send message")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, reply)
}

// requireTenantAndConversationID extracts both the tenant ID from context and
// the conversation ID from the path. It writes an error response and returns
// false if either extraction fails.
func requireTenantAndConversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := getTenantIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return uuid.Nil, uuid.Nil, false
	}

	conversationID, err := getPathUUID(r, "conversationID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, conversationID, true
}
