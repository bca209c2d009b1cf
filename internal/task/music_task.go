package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/generation"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// maxLyricsChars is the longest lyric text the music provider accepts;
// longer inputs are truncated before the call.
const maxLyricsChars = 550

// MusicGenerationTask renders a music track from the sub-task's lyric text
// and voice settings.
type MusicGenerationTask struct {
	id        uuid.UUID
	taskID    uuid.UUID
	subTaskID uuid.UUID

	taskStore store.AIGCTaskStore
	music     generation.MusicGenerator
	objects   generation.ObjectStore

	defaultVoice string

	logger *slog.Logger
	status TaskStatus
}

// NewMusicGenerationTask creates a music generation task for one sub-task
// attempt.
func NewMusicGenerationTask(
	taskID, subTaskID uuid.UUID,
	taskStore store.AIGCTaskStore,
	music generation.MusicGenerator,
	objects generation.ObjectStore,
	defaultVoice string,
	logger *slog.Logger,
) (*MusicGenerationTask, error) {
	if taskStore == nil {
		return nil, ErrNilTaskStore
	}
	if music == nil || objects == nil {
		return nil, ErrNilProvider
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil || subTaskID == uuid.Nil {
		return nil, ErrEmptyTargetID
	}

	return &MusicGenerationTask{
		id:           uuid.New(),
		taskID:       taskID,
		subTaskID:    subTaskID,
		taskStore:    taskStore,
		music:        music,
		objects:      objects,
		defaultVoice: defaultVoice,
		logger:       logger.With("task_type", TaskTypeMusicGeneration, "target_task_id", taskID),
		status:       TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *MusicGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *MusicGenerationTask) Type() string {
	return TaskTypeMusicGeneration
}

// Payload returns the task data as a byte slice
func (t *MusicGenerationTask) Payload() []byte {
	data, err := json.Marshal(stagePayload{TaskID: t.taskID, SubTaskID: t.subTaskID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *MusicGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute renders the music track and commits the outcome.
func (t *MusicGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting music generation")

	aggregate, err := t.taskStore.GetByID(ctx, t.taskID)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load task: %w", err)
	}

	musicSub := aggregate.Music
	if musicSub == nil || musicSub.SubTaskID != t.subTaskID {
		t.logger.Info("music attempt superseded before execution, discarding")
		t.status = TaskStatusCompleted
		return nil
	}
	if musicSub.Input == nil || musicSub.Input.Lyrics == "" {
		t.failMusic(ctx)
		t.status = TaskStatusFailed
		return errors.New("music sub-task has no lyric text")
	}

	req := *musicSub.Input
	req.Lyrics = truncateLyrics(req.Lyrics)
	if req.Voice == "" {
		req.Voice = t.defaultVoice
	}
	if req.ReferenceAudioURL == "" {
		req.ReferenceAudioURL = aggregate.VoiceCloneURL
	}

	result, genErr := t.music.GenerateMusic(ctx, req)
	if genErr == nil && (result == nil || result.AudioURL == "") {
		genErr = generation.ErrEmptyResult
	}

	if genErr == nil {
		var stored string
		stored, genErr = t.objects.Store(ctx, result.AudioURL)
		if genErr == nil {
			result.AudioURL = stored
		}
	}

	if genErr != nil {
		t.logger.Error("music generation failed", "error", genErr)
		t.failMusic(ctx)
		t.status = TaskStatusFailed
		return fmt.Errorf("music generation failed: %w", genErr)
	}

	if err := commitTask(ctx, t.taskStore, t.taskID, t.logger, func(a *domain.AIGCTask) bool {
		if a.Music == nil || a.Music.SubTaskID != t.subTaskID {
			return false
		}
		a.Music.Output = result
		a.Music.Complete()
		return true
	}); err != nil {
		t.status = TaskStatusFailed
		return err
	}

	t.status = TaskStatusCompleted
	t.logger.Info("music generation completed")
	return nil
}

func (t *MusicGenerationTask) failMusic(ctx context.Context) {
	if err := commitTask(ctx, t.taskStore, t.taskID, t.logger, func(a *domain.AIGCTask) bool {
		if a.Music == nil || a.Music.SubTaskID != t.subTaskID {
			return false
		}
		a.Music.Fail()
		a.Music.Output = nil
		return true
	}); err != nil {
		t.logger.Error("failed to record music failure", "error", err)
	}
}

// truncateLyrics caps the lyric text at maxLyricsChars runes.
func truncateLyrics(lyrics string) string {
	runes := []rune(lyrics)
	if len(runes) <= maxLyricsChars {
		return lyrics
	}
	return string(runes[:maxLyricsChars])
}
