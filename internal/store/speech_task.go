package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/soluna-labs/mirage-api/internal/domain"
)

// SpeechTaskStore defines the interface for derivative speech work items.
type SpeechTaskStore interface {
	// Create saves a new speech task.
	Create(ctx context.Context, task *domain.SpeechTask) error

	// GetByID retrieves a speech task by its unique ID.
	// Returns ErrSpeechTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SpeechTask, error)

	// Update saves changes to an existing speech task.
	// Returns ErrSpeechTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.SpeechTask) error

	// FindPending retrieves up to limit speech tasks in pending status,
	// oldest first.
	FindPending(ctx context.Context, limit int) ([]*domain.SpeechTask, error)

	// WithTx returns a new SpeechTaskStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) SpeechTaskStore
}
