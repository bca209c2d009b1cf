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

// videoPrompts maps each video variant to its motion prompt.
var videoPrompts = map[domain.VideoKey]string{
	domain.VideoKeyTurn:    "the subject slowly turns around in place, smooth camera",
	domain.VideoKeyDance:   "the subject dances energetically, rhythmic motion",
	domain.VideoKeySing:    "the subject sings into the microphone, expressive face",
	domain.VideoKeyFigure:  "slow rotating product shot of the figurine",
	domain.VideoKeySpeech:  "the subject talks to the camera, natural gestures",
	domain.VideoKeyThink:   "the subject looks thoughtful, hand on chin",
	domain.VideoKeyDefault: "subtle idle motion, breathing, blinking",
	domain.VideoKeyAngry:   "the subject looks angry, furrowed brows, crossed arms",
	domain.VideoKeyGogo:    "the subject cheers and pumps a fist, excited",
	domain.VideoKeySaying:  "the subject nods along while speaking",
}

// VideoGenerationTask renders one keyed video variant seeded by the matching
// cover artifact.
type VideoGenerationTask struct {
	id        uuid.UUID
	taskID    uuid.UUID
	subTaskID uuid.UUID
	key       domain.VideoKey

	taskStore store.AIGCTaskStore
	videos    generation.VideoGenerator
	objects   generation.ObjectStore

	logger *slog.Logger
	status TaskStatus
}

// NewVideoGenerationTask creates a video generation task for one sub-task
// attempt of the given variant key.
func NewVideoGenerationTask(
	taskID, subTaskID uuid.UUID,
	key domain.VideoKey,
	taskStore store.AIGCTaskStore,
	videos generation.VideoGenerator,
	objects generation.ObjectStore,
	logger *slog.Logger,
) (*VideoGenerationTask, error) {
	if taskStore == nil {
		return nil, ErrNilTaskStore
	}
	if videos == nil || objects == nil {
		return nil, ErrNilProvider
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil || subTaskID == uuid.Nil {
		return nil, ErrEmptyTargetID
	}
	if !key.IsValid() {
		return nil, domain.ErrInvalidVideoKey
	}

	return &VideoGenerationTask{
		id:        uuid.New(),
		taskID:    taskID,
		subTaskID: subTaskID,
		key:       key,
		taskStore: taskStore,
		videos:    videos,
		objects:   objects,
		logger: logger.With("task_type", TaskTypeVideoGeneration,
			"target_task_id", taskID, "video_key", key),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *VideoGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *VideoGenerationTask) Type() string {
	return TaskTypeVideoGeneration
}

// Payload returns the task data as a byte slice
func (t *VideoGenerationTask) Payload() []byte {
	data, err := json.Marshal(stagePayload{
		TaskID:    t.taskID,
		SubTaskID: t.subTaskID,
		Key:       t.key,
	})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *VideoGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute renders the video variant and commits the outcome.
func (t *VideoGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting video generation")

	aggregate, err := t.taskStore.GetByID(ctx, t.taskID)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load task: %w", err)
	}

	video := aggregate.VideoByKey(t.key)
	if video == nil || video.SubTaskID != t.subTaskID {
		t.logger.Info("video attempt superseded before execution, discarding")
		t.status = TaskStatusCompleted
		return nil
	}

	// The cover precondition is enforced at stage entry, but the cover may
	// have been regenerated since; treat a missing output as a failure.
	if !aggregate.CoverDone() {
		t.failVideo(ctx)
		t.status = TaskStatusFailed
		return errors.New("cover output unavailable for video generation")
	}

	firstFrame := firstFrameForKey(aggregate.Cover.Output, t.key)
	prompt := videoPrompts[t.key]

	rawURL, genErr := t.videos.GenerateVideo(ctx, firstFrame, prompt)
	if genErr == nil && rawURL == "" {
		genErr = generation.ErrEmptyResult
	}

	var viewURL string
	if genErr == nil {
		viewURL, genErr = t.objects.Store(ctx, rawURL)
	}

	if genErr != nil {
		t.logger.Error("video generation failed", "error", genErr)
		t.failVideo(ctx)
		t.status = TaskStatusFailed
		return fmt.Errorf("video generation failed: %w", genErr)
	}

	if err := commitTask(ctx, t.taskStore, t.taskID, t.logger, func(a *domain.AIGCTask) bool {
		v := a.VideoByKey(t.key)
		if v == nil || v.SubTaskID != t.subTaskID {
			return false
		}
		v.Output = &domain.VideoResult{ViewURL: viewURL}
		v.Complete()
		return true
	}); err != nil {
		t.status = TaskStatusFailed
		return err
	}

	t.status = TaskStatusCompleted
	t.logger.Info("video generation completed")
	return nil
}

func (t *VideoGenerationTask) failVideo(ctx context.Context) {
	if err := commitTask(ctx, t.taskStore, t.taskID, t.logger, func(a *domain.AIGCTask) bool {
		v := a.VideoByKey(t.key)
		if v == nil || v.SubTaskID != t.subTaskID {
			return false
		}
		v.Fail()
		v.Output = nil
		return true
	}); err != nil {
		t.logger.Error("failed to record video failure", "error", err)
	}
}

// firstFrameForKey picks the cover artifact that seeds the given variant.
func firstFrameForKey(cover *domain.CoverResult, key domain.VideoKey) string {
	switch key {
	case domain.VideoKeyDance:
		return cover.DanceImageURL
	case domain.VideoKeySing:
		return cover.SingImageURL
	case domain.VideoKeyFigure:
		return cover.FigureImageURL
	default:
		return cover.FirstFrameImageURL
	}
}
