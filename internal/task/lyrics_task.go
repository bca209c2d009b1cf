package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/generation"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// LyricsGenerationTask produces song lyrics and a title from the task's
// originating profile.
type LyricsGenerationTask struct {
	id        uuid.UUID
	taskID    uuid.UUID
	subTaskID uuid.UUID

	taskStore store.AIGCTaskStore
	lyrics    generation.LyricsGenerator

	logger *slog.Logger
	status TaskStatus
}

// NewLyricsGenerationTask creates a lyrics generation task for one sub-task
// attempt.
func NewLyricsGenerationTask(
	taskID, subTaskID uuid.UUID,
	taskStore store.AIGCTaskStore,
	lyrics generation.LyricsGenerator,
	logger *slog.Logger,
) (*LyricsGenerationTask, error) {
	if taskStore == nil {
		return nil, ErrNilTaskStore
	}
	if lyrics == nil {
		return nil, ErrNilProvider
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil || subTaskID == uuid.Nil {
		return nil, ErrEmptyTargetID
	}

	return &LyricsGenerationTask{
		id:        uuid.New(),
		taskID:    taskID,
		subTaskID: subTaskID,
		taskStore: taskStore,
		lyrics:    lyrics,
		logger:    logger.With("task_type", TaskTypeLyricsGeneration, "target_task_id", taskID),
		status:    TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *LyricsGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *LyricsGenerationTask) Type() string {
	return TaskTypeLyricsGeneration
}

// Payload returns the task data as a byte slice
func (t *LyricsGenerationTask) Payload() []byte {
	data, err := json.Marshal(stagePayload{TaskID: t.taskID, SubTaskID: t.subTaskID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *LyricsGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute generates the lyrics and commits the outcome.
func (t *LyricsGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting lyrics generation")

	aggregate, err := t.taskStore.GetByID(ctx, t.taskID)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load task: %w", err)
	}

	lyricsSub := aggregate.Lyrics
	if lyricsSub == nil || lyricsSub.SubTaskID != t.subTaskID {
		t.logger.Info("lyrics attempt superseded before execution, discarding")
		t.status = TaskStatusCompleted
		return nil
	}

	lang := aggregate.Lang
	if lyricsSub.Input != nil && lyricsSub.Input.Lang != "" {
		lang = lyricsSub.Input.Lang
	}

	result, genErr := t.lyrics.GenerateLyrics(ctx, aggregate.ProfileURL, lang)
	if genErr == nil && (result == nil || result.Lyrics == "") {
		genErr = generation.ErrEmptyResult
	}

	if genErr != nil {
		t.logger.Error("lyrics generation failed", "error", genErr)
		if commitErr := commitTask(ctx, t.taskStore, t.taskID, t.logger, func(a *domain.AIGCTask) bool {
			if a.Lyrics == nil || a.Lyrics.SubTaskID != t.subTaskID {
				return false
			}
			a.Lyrics.Fail()
			a.Lyrics.Output = nil
			return true
		}); commitErr != nil {
			t.logger.Error("failed to record lyrics failure", "error", commitErr)
		}
		t.status = TaskStatusFailed
		return fmt.Errorf("lyrics generation failed: %w", genErr)
	}

	if err := commitTask(ctx, t.taskStore, t.taskID, t.logger, func(a *domain.AIGCTask) bool {
		if a.Lyrics == nil || a.Lyrics.SubTaskID != t.subTaskID {
			return false
		}
		a.Lyrics.Output = result
		a.Lyrics.Complete()
		return true
	}); err != nil {
		t.status = TaskStatusFailed
		return err
	}

	t.status = TaskStatusCompleted
	t.logger.Info("lyrics generation completed")
	return nil
}
