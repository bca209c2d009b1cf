package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/platform/logger"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// AIGCTaskStore implements the store.AIGCTaskStore interface using a
// PostgreSQL database. The aggregate is stored as one JSONB document per
// task; the version column backs compare-and-swap updates so concurrent
// stage operations cannot silently overwrite sibling stages.
type AIGCTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewAIGCTaskStore creates a new PostgreSQL implementation of the
// store.AIGCTaskStore interface.
func NewAIGCTaskStore(db store.DBTX, logger *slog.Logger) *AIGCTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AIGCTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "aigc_task_store")),
	}
}

// Ensure AIGCTaskStore implements store.AIGCTaskStore
var _ store.AIGCTaskStore = (*AIGCTaskStore)(nil)

// Create implements store.AIGCTaskStore.Create.
// Returns store.ErrActiveTaskExists when the tenant already has an active task.
func (s *AIGCTaskStore) Create(ctx context.Context, task *domain.AIGCTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.TaskID.String()))
		return err
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task document: %w", err)
	}

	query := `
		INSERT INTO aigc_tasks (task_id, tenant_id, active, version, data, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		task.TaskID,
		task.TenantID,
		task.Version,
		data,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("tenant already has an active task",
				slog.String("tenant_id", task.TenantID.String()))
			return fmt.Errorf("%w: tenant %s", store.ErrActiveTaskExists, task.TenantID)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.TaskID.String()))
		return err
	}

	log.Info("task created successfully",
		slog.String("task_id", task.TaskID.String()),
		slog.String("tenant_id", task.TenantID.String()))
	return nil
}

// GetByID implements store.AIGCTaskStore.GetByID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *AIGCTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AIGCTask, error) {
	query := `
		SELECT data, version
		FROM aigc_tasks
		WHERE task_id = $1
	`
	return s.getOne(ctx, query, id)
}

// GetActiveByTenant implements store.AIGCTaskStore.GetActiveByTenant.
// Returns store.ErrTaskNotFound if the tenant has no active task.
func (s *AIGCTaskStore) GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*domain.AIGCTask, error) {
	query := `
		SELECT data, version
		FROM aigc_tasks
		WHERE tenant_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.getOne(ctx, query, tenantID)
}

func (s *AIGCTaskStore) getOne(ctx context.Context, query string, arg any) (*domain.AIGCTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var data []byte
	var version int64

	err := s.db.QueryRowContext(ctx, query, arg).Scan(&data, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()))
		return nil, err
	}

	var task domain.AIGCTask
	if err := json.Unmarshal(data, &task); err != nil {
		log.Error("failed to unmarshal task document",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to unmarshal task document: %w", err)
	}

	// The version column is authoritative over whatever the document carries.
	task.Version = version

	return &task, nil
}

// Update implements store.AIGCTaskStore.Update.
// The whole document is replaced if and only if the stored version matches
// task.Version. Returns store.ErrVersionConflict when a concurrent writer
// got there first, and store.ErrTaskNotFound if the task does not exist.
func (s *AIGCTaskStore) Update(ctx context.Context, task *domain.AIGCTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.TaskID.String()))
		return err
	}

	task.Touch()

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task document: %w", err)
	}

	query := `
		UPDATE aigc_tasks
		SET data = $1, version = version + 1, updated_at = $2
		WHERE task_id = $3 AND version = $4
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		data,
		task.UpdatedAt,
		task.TaskID,
		task.Version,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.TaskID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing row from a lost compare-and-swap.
		var exists bool
		checkErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM aigc_tasks WHERE task_id = $1)`,
			task.TaskID,
		).Scan(&exists)
		if checkErr != nil {
			return checkErr
		}
		if !exists {
			return store.ErrTaskNotFound
		}

		log.Debug("task version conflict",
			slog.String("task_id", task.TaskID.String()),
			slog.Int64("version", task.Version))
		return fmt.Errorf("%w: task %s at version %d",
			store.ErrVersionConflict, task.TaskID, task.Version)
	}

	task.Version++

	log.Debug("task updated successfully",
		slog.String("task_id", task.TaskID.String()),
		slog.Int64("version", task.Version))
	return nil
}

// Delete implements store.AIGCTaskStore.Delete.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *AIGCTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM aigc_tasks WHERE task_id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	log.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}

// WithTx implements store.AIGCTaskStore.WithTx.
func (s *AIGCTaskStore) WithTx(tx *sql.Tx) store.AIGCTaskStore {
	return &AIGCTaskStore{
		db:     tx,
		logger: s.logger,
	}
}
