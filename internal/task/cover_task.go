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

// Common errors for task construction
var (
	ErrNilTaskStore  = errors.New("task store cannot be nil")
	ErrNilProvider   = errors.New("generation provider cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrEmptyTargetID = errors.New("target task ID cannot be empty")
)

// stylePrompts maps the cover request's style ID to the rendering prompt
// sent to the image provider. Unknown IDs fall back to style 1.
var stylePrompts = map[int]string{
	1:  "photorealistic portrait, studio lighting, neutral background",
	2:  "3d cartoon character, soft shading, vibrant colors",
	3:  "anime style portrait, clean line art, cel shading",
	4:  "oil painting portrait, impressionist brush strokes",
	5:  "cyberpunk portrait, neon rim light, dark background",
	6:  "watercolor illustration, pastel palette, paper texture",
	7:  "pixel art character, 32-bit palette",
	8:  "claymation figure, handcrafted texture, warm light",
	9:  "comic book hero portrait, bold ink outlines, halftone shading",
	10: "low poly 3d render, flat colors, isometric light",
	11: "ink wash portrait, minimal strokes, rice paper background",
	12: "retro pop art portrait, saturated primary colors",
}

func stylePrompt(styleID int) string {
	if p, ok := stylePrompts[styleID]; ok {
		return p
	}
	return stylePrompts[1]
}

// coverVariantPrompts are the per-variant prompt suffixes for the pose
// composites produced alongside the base portrait.
const (
	dancePrompt    = "full body dance pose, match the reference pose, energetic stance"
	singPrompt     = "holding a microphone, singing pose, match the reference pose"
	figurinePrompt = "collectible desk figurine of the subject, product photo, clean backdrop"
)

// CoverGenerationTask renders the cover stage: the styled base portrait plus
// the dance, sing, and figurine composites, all generated concurrently. The
// stage commits done only when every variant produced a usable artifact;
// any miss fails the whole stage and partial artifacts are discarded.
type CoverGenerationTask struct {
	id        uuid.UUID
	taskID    uuid.UUID
	subTaskID uuid.UUID

	taskStore store.AIGCTaskStore
	images    generation.ImageGenerator
	objects   generation.ObjectStore

	dancePoseURL string
	singPoseURL  string

	logger *slog.Logger
	status TaskStatus
}

// NewCoverGenerationTask creates a cover generation task for one sub-task
// attempt. The subTaskID pins the attempt's identity: if the sub-task is
// regenerated while this task is in flight, the result is discarded.
func NewCoverGenerationTask(
	taskID, subTaskID uuid.UUID,
	taskStore store.AIGCTaskStore,
	images generation.ImageGenerator,
	objects generation.ObjectStore,
	dancePoseURL, singPoseURL string,
	logger *slog.Logger,
) (*CoverGenerationTask, error) {
	if taskStore == nil {
		return nil, ErrNilTaskStore
	}
	if images == nil || objects == nil {
		return nil, ErrNilProvider
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil || subTaskID == uuid.Nil {
		return nil, ErrEmptyTargetID
	}

	return &CoverGenerationTask{
		id:           uuid.New(),
		taskID:       taskID,
		subTaskID:    subTaskID,
		taskStore:    taskStore,
		images:       images,
		objects:      objects,
		dancePoseURL: dancePoseURL,
		singPoseURL:  singPoseURL,
		logger:       logger.With("task_type", TaskTypeCoverGeneration, "target_task_id", taskID),
		status:       TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *CoverGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *CoverGenerationTask) Type() string {
	return TaskTypeCoverGeneration
}

// Payload returns the task data as a byte slice
func (t *CoverGenerationTask) Payload() []byte {
	data, err := json.Marshal(stagePayload{TaskID: t.taskID, SubTaskID: t.subTaskID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *CoverGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute runs the cover fan-out and commits the outcome.
func (t *CoverGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting cover generation")

	aggregate, err := t.taskStore.GetByID(ctx, t.taskID)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load task: %w", err)
	}

	cover := aggregate.Cover
	if cover == nil || cover.SubTaskID != t.subTaskID {
		// Superseded before we started; nothing to do.
		t.logger.Info("cover attempt superseded before execution, discarding")
		t.status = TaskStatusCompleted
		return nil
	}
	if cover.Input == nil {
		t.status = TaskStatusFailed
		return errors.New("cover sub-task has no input")
	}

	sourceImage := cover.Input.ImageURL
	if sourceImage == "" {
		sourceImage = aggregate.AvatarURL
	}
	basePrompt := stylePrompt(cover.Input.StyleID)

	var firstFrame, dance, sing, figure string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		firstFrame, err = t.generateAndStore(gctx, []string{sourceImage}, basePrompt, "first_frame")
		return err
	})
	g.Go(func() error {
		var err error
		dance, err = t.generateAndStore(gctx,
			[]string{sourceImage, t.dancePoseURL}, basePrompt+", "+dancePrompt, "dance")
		return err
	})
	g.Go(func() error {
		var err error
		sing, err = t.generateAndStore(gctx,
			[]string{sourceImage, t.singPoseURL}, basePrompt+", "+singPrompt, "sing")
		return err
	})
	g.Go(func() error {
		var err error
		figure, err = t.generateAndStore(gctx, []string{sourceImage}, basePrompt+", "+figurinePrompt, "figure")
		return err
	})

	if genErr := g.Wait(); genErr != nil {
		t.logger.Error("cover fan-out failed", "error", genErr)

		commitErr := commitTask(ctx, t.taskStore, t.taskID, t.logger, func(a *domain.AIGCTask) bool {
			if a.Cover == nil || a.Cover.SubTaskID != t.subTaskID {
				return false
			}
			a.Cover.Fail()
			a.Cover.Output = nil
			return true
		})
		if commitErr != nil {
			t.logger.Error("failed to record cover failure", "error", commitErr)
		}

		t.status = TaskStatusFailed
		return fmt.Errorf("cover generation failed: %w", genErr)
	}

	result := &domain.CoverResult{
		CoverImageURL:      firstFrame,
		FirstFrameImageURL: firstFrame,
		DanceImageURL:      dance,
		SingImageURL:       sing,
		FigureImageURL:     figure,
	}

	if err := commitTask(ctx, t.taskStore, t.taskID, t.logger, func(a *domain.AIGCTask) bool {
		if a.Cover == nil || a.Cover.SubTaskID != t.subTaskID {
			return false
		}
		a.Cover.Output = result
		a.Cover.Complete()
		return true
	}); err != nil {
		t.status = TaskStatusFailed
		return err
	}

	t.status = TaskStatusCompleted
	t.logger.Info("cover generation completed")
	return nil
}

// generateAndStore renders one variant and copies the provider artifact to
// durable storage, returning the permanent URL.
func (t *CoverGenerationTask) generateAndStore(
	ctx context.Context,
	refs []string,
	prompt, scenario string,
) (string, error) {
	rawURL, err := t.images.GenerateImage(ctx, refs, prompt, scenario)
	if err != nil {
		return "", fmt.Errorf("%s variant failed: %w", scenario, err)
	}
	if rawURL == "" {
		return "", fmt.Errorf("%s variant: %w", scenario, generation.ErrEmptyResult)
	}

	stored, err := t.objects.Store(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("%s variant: failed to store artifact: %w", scenario, err)
	}
	return stored, nil
}
