package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/soluna-labs/mirage-api/internal/domain"
)

// AIGCTaskStore defines the interface for generation-task aggregate
// persistence. The aggregate is stored as a single document; saves are
// compare-and-swap on the aggregate's Version field.
type AIGCTaskStore interface {
	// Create saves a new task aggregate.
	// Returns ErrActiveTaskExists when the tenant already has an active task.
	Create(ctx context.Context, task *domain.AIGCTask) error

	// GetByID retrieves a task aggregate by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AIGCTask, error)

	// GetActiveByTenant retrieves the tenant's active task aggregate.
	// Returns ErrTaskNotFound if the tenant has no active task.
	GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*domain.AIGCTask, error)

	// Update replaces the whole task document if and only if the stored
	// version matches task.Version; on success task.Version is incremented.
	// Returns ErrVersionConflict when a concurrent writer got there first,
	// and ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.AIGCTask) error

	// Delete removes a task aggregate. Tasks are only deleted by explicit
	// tenant action. Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new AIGCTaskStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) AIGCTaskStore
}
