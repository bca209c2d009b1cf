package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/events"
	"github.com/soluna-labs/mirage-api/internal/generation"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// MockAIGCTaskStore mocks the store.AIGCTaskStore interface
type MockAIGCTaskStore struct {
	mock.Mock
}

func (m *MockAIGCTaskStore) Create(ctx context.Context, task *domain.AIGCTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockAIGCTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AIGCTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AIGCTask), args.Error(1)
}

func (m *MockAIGCTaskStore) GetActiveByTenant(
	ctx context.Context,
	tenantID uuid.UUID,
) (*domain.AIGCTask, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AIGCTask), args.Error(1)
}

func (m *MockAIGCTaskStore) Update(ctx context.Context, task *domain.AIGCTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockAIGCTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAIGCTaskStore) WithTx(tx *sql.Tx) store.AIGCTaskStore {
	return m
}

// MockUsageStore mocks the store.UsageStore interface
type MockUsageStore struct {
	mock.Mock
}

func (m *MockUsageStore) Increment(ctx context.Context, client, resource string) (store.Usage, error) {
	args := m.Called(ctx, client, resource)
	return args.Get(0).(store.Usage), args.Error(1)
}

func (m *MockUsageStore) DefaultLimit(ctx context.Context, resource string) (int64, bool, error) {
	args := m.Called(ctx, resource)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockUsageStore) WithTx(tx *sql.Tx) store.UsageStore {
	return m
}

// MockDigitalHumanStore mocks the store.DigitalHumanStore interface
type MockDigitalHumanStore struct {
	mock.Mock
}

func (m *MockDigitalHumanStore) GetByName(ctx context.Context, name string) (*domain.DigitalHuman, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DigitalHuman), args.Error(1)
}

func (m *MockDigitalHumanStore) Save(ctx context.Context, human *domain.DigitalHuman) error {
	args := m.Called(ctx, human)
	return args.Error(0)
}

func (m *MockDigitalHumanStore) WithTx(tx *sql.Tx) store.DigitalHumanStore {
	return m
}

// MockSpeechTaskStore mocks the store.SpeechTaskStore interface
type MockSpeechTaskStore struct {
	mock.Mock
}

func (m *MockSpeechTaskStore) Create(ctx context.Context, task *domain.SpeechTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockSpeechTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.SpeechTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SpeechTask), args.Error(1)
}

func (m *MockSpeechTaskStore) Update(ctx context.Context, task *domain.SpeechTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockSpeechTaskStore) FindPending(ctx context.Context, limit int) ([]*domain.SpeechTask, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SpeechTask), args.Error(1)
}

func (m *MockSpeechTaskStore) WithTx(tx *sql.Tx) store.SpeechTaskStore {
	return m
}

// MockConversationStore mocks the store.ConversationStore interface
type MockConversationStore struct {
	mock.Mock
}

func (m *MockConversationStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockConversationStore) GetConversation(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationStore) ListConversations(ctx context.Context, tenantID uuid.UUID) ([]*domain.Conversation, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *MockConversationStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockConversationStore) RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

func (m *MockConversationStore) WithTx(tx *sql.Tx) store.ConversationStore {
	return m
}

// MockProfileLookup mocks the generation.ProfileLookup interface
type MockProfileLookup struct {
	mock.Mock
}

func (m *MockProfileLookup) Lookup(ctx context.Context, handle string) (*generation.Profile, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generation.Profile), args.Error(1)
}

// MockTextGenerator mocks the generation.TextGenerator interface
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockEventEmitter mocks the events.EventEmitter interface
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
