package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/platform/logger"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// SpeechTaskStore implements the store.SpeechTaskStore interface using a
// PostgreSQL database.
type SpeechTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSpeechTaskStore creates a new PostgreSQL implementation of the
// store.SpeechTaskStore interface.
func NewSpeechTaskStore(db store.DBTX, logger *slog.Logger) *SpeechTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SpeechTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "speech_task_store")),
	}
}

// Ensure SpeechTaskStore implements store.SpeechTaskStore
var _ store.SpeechTaskStore = (*SpeechTaskStore)(nil)

// Create implements store.SpeechTaskStore.Create.
func (s *SpeechTaskStore) Create(ctx context.Context, task *domain.SpeechTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("speech task validation failed during create",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO speech_tasks (id, tenant_id, digital_human_id, handle, voice_id,
			status, audio_url, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.TenantID,
		task.DigitalHumanID,
		task.Handle,
		task.VoiceID,
		task.Status,
		task.AudioURL,
		task.ErrorMessage,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create speech task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Debug("speech task created",
		slog.String("task_id", task.ID.String()),
		slog.String("handle", task.Handle))
	return nil
}

// GetByID implements store.SpeechTaskStore.GetByID.
// Returns store.ErrSpeechTaskNotFound if the task does not exist.
func (s *SpeechTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.SpeechTask, error) {
	query := `
		SELECT id, tenant_id, digital_human_id, handle, voice_id,
			status, audio_url, error_message, created_at, updated_at
		FROM speech_tasks
		WHERE id = $1
	`

	var task domain.SpeechTask
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.TenantID,
		&task.DigitalHumanID,
		&task.Handle,
		&task.VoiceID,
		&task.Status,
		&task.AudioURL,
		&task.ErrorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSpeechTaskNotFound
		}
		return nil, err
	}

	return &task, nil
}

// Update implements store.SpeechTaskStore.Update.
// Returns store.ErrSpeechTaskNotFound if the task does not exist.
func (s *SpeechTaskStore) Update(ctx context.Context, task *domain.SpeechTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("speech task validation failed during update",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		UPDATE speech_tasks
		SET status = $1, audio_url = $2, error_message = $3, updated_at = NOW()
		WHERE id = $4
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Status,
		task.AudioURL,
		task.ErrorMessage,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update speech task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrSpeechTaskNotFound
	}

	return nil
}

// FindPending implements store.SpeechTaskStore.FindPending.
func (s *SpeechTaskStore) FindPending(ctx context.Context, limit int) ([]*domain.SpeechTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, tenant_id, digital_human_id, handle, voice_id,
			status, audio_url, error_message, created_at, updated_at
		FROM speech_tasks
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, domain.SpeechTaskStatusPending, limit)
	if err != nil {
		log.Error("failed to find pending speech tasks",
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.SpeechTask
	for rows.Next() {
		var task domain.SpeechTask
		if err := rows.Scan(
			&task.ID,
			&task.TenantID,
			&task.DigitalHumanID,
			&task.Handle,
			&task.VoiceID,
			&task.Status,
			&task.AudioURL,
			&task.ErrorMessage,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan speech task row: %w", err)
		}
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating speech task rows: %w", err)
	}

	return tasks, nil
}

// WithTx implements store.SpeechTaskStore.WithTx.
func (s *SpeechTaskStore) WithTx(tx *sql.Tx) store.SpeechTaskStore {
	return &SpeechTaskStore{
		db:     tx,
		logger: s.logger,
	}
}
