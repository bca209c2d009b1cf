package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/generation"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// AudioGenerationTask synthesizes one voice-cloned clip per post URL in the
// audio sub-task's input, all concurrently. The stage is all-or-nothing
// across posts. When the aggregate has a slogan but no slogan voice yet, a
// clip for the slogan is synthesized too and stored on the aggregate;
// failures of that extra clip are swallowed.
type AudioGenerationTask struct {
	id        uuid.UUID
	taskID    uuid.UUID
	subTaskID uuid.UUID

	taskStore store.AIGCTaskStore
	speech    generation.SpeechSynthesizer

	defaultVoice string

	logger *slog.Logger
	status TaskStatus
}

// NewAudioGenerationTask creates a derivative audio task for one sub-task
// attempt.
func NewAudioGenerationTask(
	taskID, subTaskID uuid.UUID,
	taskStore store.AIGCTaskStore,
	speech generation.SpeechSynthesizer,
	defaultVoice string,
	logger *slog.Logger,
) (*AudioGenerationTask, error) {
	if taskStore == nil {
		return nil, ErrNilTaskStore
	}
	if speech == nil {
		return nil, ErrNilProvider
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil || subTaskID == uuid.Nil {
		return nil, ErrEmptyTargetID
	}

	return &AudioGenerationTask{
		id:           uuid.New(),
		taskID:       taskID,
		subTaskID:    subTaskID,
		taskStore:    taskStore,
		speech:       speech,
		defaultVoice: defaultVoice,
		logger:       logger.With("task_type", TaskTypeAudioGeneration, "target_task_id", taskID),
		status:       TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *AudioGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *AudioGenerationTask) Type() string {
	return TaskTypeAudioGeneration
}

// Payload returns the task data as a byte slice
func (t *AudioGenerationTask) Payload() []byte {
	data, err := json.Marshal(stagePayload{TaskID: t.taskID, SubTaskID: t.subTaskID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *AudioGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute synthesizes the clips and commits the outcome.
func (t *AudioGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting audio generation")

	aggregate, err := t.taskStore.GetByID(ctx, t.taskID)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load task: %w", err)
	}

	audioSub := aggregate.Audio
	if audioSub == nil || audioSub.SubTaskID != t.subTaskID {
		t.logger.Info("audio attempt superseded before execution, discarding")
		t.status = TaskStatusCompleted
		return nil
	}
	if audioSub.Input == nil || len(audioSub.Input.PostURLs) == 0 {
		t.failAudio(ctx)
		t.status = TaskStatusFailed
		return errors.New("audio sub-task has no post URLs")
	}

	cloneURL := aggregate.VoiceCloneURL
	lang := aggregate.Lang

	clips := make([]domain.SpeechClip, len(audioSub.Input.PostURLs))
	g, gctx := errgroup.WithContext(ctx)
	for i, postURL := range audioSub.Input.PostURLs {
		g.Go(func() error {
			clip, err := t.speech.SynthesizeFromPost(gctx, postURL, t.defaultVoice, cloneURL, lang)
			if err != nil {
				return fmt.Errorf("post %s: %w", postURL, err)
			}
			if clip == nil || clip.AudioURL == "" {
				return fmt.Errorf("post %s: %w", postURL, generation.ErrEmptyResult)
			}
			clips[i] = *clip
			return nil
		})
	}

	if genErr := g.Wait(); genErr != nil {
		t.logger.Error("audio fan-out failed", "error", genErr)
		t.failAudio(ctx)
		t.status = TaskStatusFailed
		return fmt.Errorf("audio generation failed: %w", genErr)
	}

	// Back-fill the slogan voice opportunistically. A failure here never
	// fails the stage.
	var sloganVoiceURL string
	if aggregate.Slogan != "" && aggregate.SloganVoiceURL == "" {
		clip, sloganErr := t.speech.SynthesizeText(ctx, aggregate.Slogan, t.defaultVoice, cloneURL, lang)
		if sloganErr != nil {
			t.logger.Warn("slogan voice synthesis failed", "error", sloganErr)
		} else if clip != nil {
			sloganVoiceURL = clip.AudioURL
		}
	}

	if err := commitTask(ctx, t.taskStore, t.taskID, t.logger, func(a *domain.AIGCTask) bool {
		if a.Audio == nil || a.Audio.SubTaskID != t.subTaskID {
			return false
		}
		a.Audio.Output = clips
		a.Audio.Complete()
		if sloganVoiceURL != "" && a.SloganVoiceURL == "" {
			a.SloganVoiceURL = sloganVoiceURL
		}
		return true
	}); err != nil {
		t.status = TaskStatusFailed
		return err
	}

	t.status = TaskStatusCompleted
	t.logger.Info("audio generation completed", "clip_count", len(clips))
	return nil
}

func (t *AudioGenerationTask) failAudio(ctx context.Context) {
	if err := commitTask(ctx, t.taskStore, t.taskID, t.logger, func(a *domain.AIGCTask) bool {
		if a.Audio == nil || a.Audio.SubTaskID != t.subTaskID {
			return false
		}
		a.Audio.Fail()
		a.Audio.Output = nil
		return true
	}); err != nil {
		t.logger.Error("failed to record audio failure", "error", err)
	}
}
