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

// SpeechSynthesisTask processes one derivative speech work item created at
// publish time: it resolves the handle's profile, reads its description
// aloud in the published identity's voice, and records the clip on the work
// item. Failures are recorded on the work item, never propagated to the
// publish caller.
type SpeechSynthesisTask struct {
	id           uuid.UUID
	speechTaskID uuid.UUID

	speechStore store.SpeechTaskStore
	taskStore   store.AIGCTaskStore
	profiles    generation.ProfileLookup
	speech      generation.SpeechSynthesizer

	logger *slog.Logger
	status TaskStatus
}

// NewSpeechSynthesisTask creates a task processing the given speech work item.
func NewSpeechSynthesisTask(
	speechTaskID uuid.UUID,
	speechStore store.SpeechTaskStore,
	taskStore store.AIGCTaskStore,
	profiles generation.ProfileLookup,
	speech generation.SpeechSynthesizer,
	logger *slog.Logger,
) (*SpeechSynthesisTask, error) {
	if speechStore == nil || taskStore == nil {
		return nil, ErrNilTaskStore
	}
	if profiles == nil || speech == nil {
		return nil, ErrNilProvider
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if speechTaskID == uuid.Nil {
		return nil, ErrEmptyTargetID
	}

	return &SpeechSynthesisTask{
		id:           uuid.New(),
		speechTaskID: speechTaskID,
		speechStore:  speechStore,
		taskStore:    taskStore,
		profiles:     profiles,
		speech:       speech,
		logger: logger.With("task_type", TaskTypeSpeechSynthesis,
			"speech_task_id", speechTaskID),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *SpeechSynthesisTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *SpeechSynthesisTask) Type() string {
	return TaskTypeSpeechSynthesis
}

// Payload returns the task data as a byte slice
func (t *SpeechSynthesisTask) Payload() []byte {
	data, err := json.Marshal(speechPayload{SpeechTaskID: t.speechTaskID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *SpeechSynthesisTask) Status() TaskStatus {
	return t.status
}

// Execute synthesizes the clip and updates the work item.
func (t *SpeechSynthesisTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting speech synthesis")

	item, err := t.speechStore.GetByID(ctx, t.speechTaskID)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load speech task: %w", err)
	}
	if item.Status == domain.SpeechTaskStatusDone {
		t.logger.Info("speech task already done, skipping")
		t.status = TaskStatusCompleted
		return nil
	}

	item.Status = domain.SpeechTaskStatusProcessing
	if err := t.speechStore.Update(ctx, item); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to mark speech task processing: %w", err)
	}

	clip, synthErr := t.synthesize(ctx, item)
	if synthErr != nil {
		t.logger.Error("speech synthesis failed", "error", synthErr)
		item.Status = domain.SpeechTaskStatusFailed
		item.ErrorMessage = synthErr.Error()
		if updateErr := t.speechStore.Update(ctx, item); updateErr != nil {
			t.logger.Error("failed to record speech task failure", "error", updateErr)
		}
		t.status = TaskStatusFailed
		return fmt.Errorf("speech synthesis failed: %w", synthErr)
	}

	item.Status = domain.SpeechTaskStatusDone
	item.AudioURL = clip.AudioURL
	item.ErrorMessage = ""
	if err := t.speechStore.Update(ctx, item); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to record speech task result: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("speech synthesis completed")
	return nil
}

func (t *SpeechSynthesisTask) synthesize(ctx context.Context, item *domain.SpeechTask) (*domain.SpeechClip, error) {
	profile, err := t.profiles.Lookup(ctx, item.Handle)
	if err != nil {
		return nil, fmt.Errorf("profile lookup failed for %s: %w", item.Handle, err)
	}
	if profile.Description == "" {
		return nil, fmt.Errorf("profile %s: %w", item.Handle, generation.ErrEmptyResult)
	}

	// Voice clone reference comes from the originating task when available.
	var cloneURL, lang string
	if origin, err := t.taskStore.GetActiveByTenant(ctx, item.TenantID); err == nil {
		cloneURL = origin.VoiceCloneURL
		lang = origin.Lang
	}

	clip, err := t.speech.SynthesizeText(ctx, profile.Description, item.VoiceID, cloneURL, lang)
	if err != nil {
		return nil, err
	}
	if clip == nil || clip.AudioURL == "" {
		return nil, generation.ErrEmptyResult
	}
	return clip, nil
}
