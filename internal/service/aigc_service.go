package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/events"
	"github.com/soluna-labs/mirage-api/internal/generation"
	"github.com/soluna-labs/mirage-api/internal/store"
	"github.com/soluna-labs/mirage-api/internal/task"
)

// maxMutateRetries bounds the reload-and-reapply loop on version conflicts
// at stage entry.
const maxMutateRetries = 3

// AIGCServiceError is a custom error type for generation task service errors.
type AIGCServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for AIGCServiceError.
func (e *AIGCServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aigc service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("aigc service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *AIGCServiceError) Unwrap() error {
	return e.Err
}

// NewAIGCServiceError creates a new AIGCServiceError.
func NewAIGCServiceError(operation, message string, err error) *AIGCServiceError {
	return &AIGCServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// BasicInfo carries the optional identity fields a tenant can set on its
// task before or between generation stages.
type BasicInfo struct {
	Gender        string
	Lang          string
	VoiceCloneURL string
	Slogan        string
}

// AIGCService provides the stage-entry operations of the generation
// pipeline. Every Request* operation is synchronous with respect to
// accepting the request (the sub-task is persisted in progress) and
// asynchronous with respect to completing it: callers re-fetch the task to
// observe completion.
type AIGCService interface {
	// CreateTask starts a fresh task for the tenant. At most one active
	// task exists per tenant; a second create returns ErrActiveTaskExists.
	CreateTask(ctx context.Context, tenantID uuid.UUID) (*domain.AIGCTask, error)

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.AIGCTask, error)

	// GetActiveTask retrieves the tenant's active task.
	GetActiveTask(ctx context.Context, tenantID uuid.UUID) (*domain.AIGCTask, error)

	// SetBasicInfo updates the task's identity fields. Empty fields are
	// left unchanged.
	SetBasicInfo(ctx context.Context, taskID uuid.UUID, info BasicInfo) (*domain.AIGCTask, error)

	// RequestCover enters or re-enters the cover stage.
	RequestCover(ctx context.Context, taskID uuid.UUID, input domain.CoverRequest) (*domain.AIGCTask, error)

	// RequestVideo enters or re-enters one keyed video stage. Fails with
	// ErrCoverNotReady until the cover stage is done.
	RequestVideo(ctx context.Context, taskID uuid.UUID, input domain.VideoRequest) (*domain.AIGCTask, error)

	// RequestLyrics enters or re-enters the lyrics stage.
	RequestLyrics(ctx context.Context, taskID uuid.UUID, input domain.LyricsRequest) (*domain.AIGCTask, error)

	// RequestMusic enters or re-enters the music stage.
	RequestMusic(ctx context.Context, taskID uuid.UUID, input domain.MusicRequest) (*domain.AIGCTask, error)

	// RequestAudio enters or re-enters the derivative speech stage.
	RequestAudio(ctx context.Context, taskID uuid.UUID, input domain.AudioRequest) (*domain.AIGCTask, error)
}

// aigcServiceImpl implements the AIGCService interface
type aigcServiceImpl struct {
	taskStore store.AIGCTaskStore
	limiter   *UsageLimiter
	profiles  generation.ProfileLookup
	text      generation.TextGenerator
	emitter   events.EventEmitter
	logger    *slog.Logger
}

// NewAIGCService creates a new AIGCService.
// It returns an error if any of the required dependencies are nil.
func NewAIGCService(
	taskStore store.AIGCTaskStore,
	limiter *UsageLimiter,
	profiles generation.ProfileLookup,
	text generation.TextGenerator,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (AIGCService, error) {
	if taskStore == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if limiter == nil {
		return nil, fmt.Errorf("usage limiter cannot be nil")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile lookup cannot be nil")
	}
	if text == nil {
		return nil, fmt.Errorf("text generator cannot be nil")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &aigcServiceImpl{
		taskStore: taskStore,
		limiter:   limiter,
		profiles:  profiles,
		text:      text,
		emitter:   emitter,
		logger:    logger.With(slog.String("component", "aigc_service")),
	}, nil
}

// CreateTask implements AIGCService.CreateTask.
func (s *aigcServiceImpl) CreateTask(ctx context.Context, tenantID uuid.UUID) (*domain.AIGCTask, error) {
	t, err := domain.NewAIGCTask(tenantID)
	if err != nil {
		return nil, NewAIGCServiceError("create_task", "invalid tenant", err)
	}

	if err := s.taskStore.Create(ctx, t); err != nil {
		if errors.Is(err, store.ErrActiveTaskExists) {
			return nil, fmt.Errorf("%w: tenant %s", ErrActiveTaskExists, tenantID)
		}
		return nil, NewAIGCServiceError("create_task", "failed to persist task", err)
	}

	return t, nil
}

// GetTask implements AIGCService.GetTask.
func (s *aigcServiceImpl) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.AIGCTask, error) {
	t, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, NewAIGCServiceError("get_task", "failed to load task", err)
	}
	return t, nil
}

// GetActiveTask implements AIGCService.GetActiveTask.
func (s *aigcServiceImpl) GetActiveTask(ctx context.Context, tenantID uuid.UUID) (*domain.AIGCTask, error) {
	t, err := s.taskStore.GetActiveByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, NewAIGCServiceError("get_active_task", "failed to load task", err)
	}
	return t, nil
}

// SetBasicInfo implements AIGCService.SetBasicInfo.
func (s *aigcServiceImpl) SetBasicInfo(ctx context.Context, taskID uuid.UUID, info BasicInfo) (*domain.AIGCTask, error) {
	return s.mutateTask(ctx, "set_basic_info", taskID, func(t *domain.AIGCTask) error {
		if info.Gender != "" {
			t.Gender = info.Gender
		}
		if info.Lang != "" {
			t.Lang = info.Lang
		}
		if info.VoiceCloneURL != "" {
			t.VoiceCloneURL = info.VoiceCloneURL
		}
		if info.Slogan != "" {
			t.Slogan = info.Slogan
		}
		return nil
	})
}

// RequestCover implements AIGCService.RequestCover.
func (s *aigcServiceImpl) RequestCover(ctx context.Context, taskID uuid.UUID, input domain.CoverRequest) (*domain.AIGCTask, error) {
	handle := handleFromProfileURL(input.ProfileURL)
	if handle == "" {
		return nil, fmt.Errorf("%w: no handle in profile URL", ErrProfileNotFound)
	}

	profile, err := s.profiles.Lookup(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, handle)
	}

	if err := s.limiter.CheckAndRecord(ctx, taskID.String(), "gen-cover"); err != nil {
		return nil, err
	}

	// Back-fill the slogan before persisting. Slogan generation is best
	// effort: failures are swallowed and the stage proceeds without one.
	slogan := s.generateSlogan(ctx, profile)

	t, err := s.mutateTask(ctx, "request_cover", taskID, func(t *domain.AIGCTask) error {
		t.ProfileURL = input.ProfileURL
		t.Username = profile.Handle
		if avatar := profile.Avatar400URL; avatar != "" {
			t.AvatarURL = avatar
		} else {
			t.AvatarURL = profile.AvatarURL
		}
		if t.Slogan == "" && slogan != "" {
			t.Slogan = slogan
			t.SloganDescription = profile.Description
		}

		if t.Cover != nil {
			if err := t.Cover.Regenerate(); err != nil {
				return err
			}
		} else {
			t.Cover = &domain.Cover{SubTask: domain.NewSubTask()}
		}
		t.Cover.Input = &input
		t.Cover.Output = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.emitStageEvent(ctx, task.TaskTypeCoverGeneration, t.TaskID, t.Cover.SubTaskID, ""); err != nil {
		return nil, err
	}
	return t, nil
}

// RequestVideo implements AIGCService.RequestVideo.
func (s *aigcServiceImpl) RequestVideo(ctx context.Context, taskID uuid.UUID, input domain.VideoRequest) (*domain.AIGCTask, error) {
	if !input.Key.IsValid() {
		return nil, NewAIGCServiceError("request_video", "invalid video key", domain.ErrInvalidVideoKey)
	}

	// Fail fast on the cover precondition before touching the quota.
	current, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !current.CoverDone() {
		return nil, fmt.Errorf("%w: task %s", ErrCoverNotReady, taskID)
	}

	resource := "gen-video-" + string(input.Key)
	if err := s.limiter.CheckAndRecord(ctx, taskID.String(), resource); err != nil {
		return nil, err
	}

	t, err := s.mutateTask(ctx, "request_video", taskID, func(t *domain.AIGCTask) error {
		if !t.CoverDone() {
			return fmt.Errorf("%w: task %s", ErrCoverNotReady, taskID)
		}

		v := t.VideoByKey(input.Key)
		if v != nil {
			if err := v.Regenerate(); err != nil {
				return err
			}
		} else {
			v = &domain.Video{SubTask: domain.NewSubTask()}
			t.Videos = append(t.Videos, v)
		}
		v.Input = &input
		v.Output = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	sub := t.VideoByKey(input.Key)
	if err := s.emitStageEvent(ctx, task.TaskTypeVideoGeneration, t.TaskID, sub.SubTaskID, input.Key); err != nil {
		return nil, err
	}
	return t, nil
}

// RequestLyrics implements AIGCService.RequestLyrics.
func (s *aigcServiceImpl) RequestLyrics(ctx context.Context, taskID uuid.UUID, input domain.LyricsRequest) (*domain.AIGCTask, error) {
	if err := s.limiter.CheckAndRecord(ctx, taskID.String(), "gen-lyrics"); err != nil {
		return nil, err
	}

	t, err := s.mutateTask(ctx, "request_lyrics", taskID, func(t *domain.AIGCTask) error {
		if t.Lyrics != nil {
			if err := t.Lyrics.Regenerate(); err != nil {
				return err
			}
		} else {
			t.Lyrics = &domain.Lyrics{SubTask: domain.NewSubTask()}
		}
		t.Lyrics.Input = &input
		t.Lyrics.Output = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.emitStageEvent(ctx, task.TaskTypeLyricsGeneration, t.TaskID, t.Lyrics.SubTaskID, ""); err != nil {
		return nil, err
	}
	return t, nil
}

// RequestMusic implements AIGCService.RequestMusic.
func (s *aigcServiceImpl) RequestMusic(ctx context.Context, taskID uuid.UUID, input domain.MusicRequest) (*domain.AIGCTask, error) {
	if err := s.limiter.CheckAndRecord(ctx, taskID.String(), "gen-music"); err != nil {
		return nil, err
	}

	t, err := s.mutateTask(ctx, "request_music", taskID, func(t *domain.AIGCTask) error {
		if t.Music != nil {
			if err := t.Music.Regenerate(); err != nil {
				return err
			}
		} else {
			t.Music = &domain.Music{SubTask: domain.NewSubTask()}
		}
		t.Music.Input = &input
		t.Music.Output = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.emitStageEvent(ctx, task.TaskTypeMusicGeneration, t.TaskID, t.Music.SubTaskID, ""); err != nil {
		return nil, err
	}
	return t, nil
}

// RequestAudio implements AIGCService.RequestAudio.
func (s *aigcServiceImpl) RequestAudio(ctx context.Context, taskID uuid.UUID, input domain.AudioRequest) (*domain.AIGCTask, error) {
	if len(input.PostURLs) == 0 {
		return nil, NewAIGCServiceError("request_audio", "no post URLs supplied", nil)
	}

	if err := s.limiter.CheckAndRecord(ctx, taskID.String(), "gen-audio"); err != nil {
		return nil, err
	}

	t, err := s.mutateTask(ctx, "request_audio", taskID, func(t *domain.AIGCTask) error {
		if t.Audio != nil {
			if err := t.Audio.Regenerate(); err != nil {
				return err
			}
		} else {
			t.Audio = &domain.Audio{SubTask: domain.NewSubTask()}
		}
		t.Audio.Input = &input
		t.Audio.Output = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.emitStageEvent(ctx, task.TaskTypeAudioGeneration, t.TaskID, t.Audio.SubTaskID, ""); err != nil {
		return nil, err
	}
	return t, nil
}

// mutateTask loads the task, applies fn, and persists the result under
// compare-and-swap, reloading and reapplying on version conflicts.
func (s *aigcServiceImpl) mutateTask(
	ctx context.Context,
	operation string,
	taskID uuid.UUID,
	fn func(t *domain.AIGCTask) error,
) (*domain.AIGCTask, error) {
	for attempt := 0; attempt < maxMutateRetries; attempt++ {
		t, err := s.taskStore.GetByID(ctx, taskID)
		if err != nil {
			if errors.Is(err, store.ErrTaskNotFound) {
				return nil, ErrTaskNotFound
			}
			return nil, NewAIGCServiceError(operation, "failed to load task", err)
		}

		if err := fn(t); err != nil {
			return nil, err
		}

		err = s.taskStore.Update(ctx, t)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, NewAIGCServiceError(operation, "failed to persist task", err)
		}

		s.logger.Debug("version conflict at stage entry, retrying",
			slog.String("operation", operation),
			slog.String("task_id", taskID.String()))
	}

	return nil, NewAIGCServiceError(operation, "persistent version conflict", store.ErrVersionConflict)
}

// emitStageEvent publishes the background work request for one sub-task
// attempt.
func (s *aigcServiceImpl) emitStageEvent(
	ctx context.Context,
	taskType string,
	taskID, subTaskID uuid.UUID,
	key domain.VideoKey,
) error {
	event, err := events.NewTaskRequestEvent(taskType, map[string]any{
		"task_id":     taskID,
		"sub_task_id": subTaskID,
		"key":         key,
	})
	if err != nil {
		return NewAIGCServiceError("emit_event", "failed to build event", err)
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		return NewAIGCServiceError("emit_event", "failed to emit event", err)
	}
	return nil
}

// generateSlogan asks the text generator for a one-line slogan based on the
// profile. Failures are logged and swallowed.
func (s *aigcServiceImpl) generateSlogan(ctx context.Context, profile *generation.Profile) string {
	if profile.Description == "" {
		return ""
	}

	prompt := fmt.Sprintf(
		"Write one short, catchy slogan (under 15 words) for a digital avatar of %q. Bio: %s. Reply with the slogan only.",
		profile.Handle, profile.Description,
	)
	slogan, err := s.text.GenerateText(ctx, prompt)
	if err != nil {
		s.logger.Warn("slogan generation failed",
			slog.String("handle", profile.Handle),
			slog.String("error", err.Error()))
		return ""
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(slogan), `"`))
}

// handleFromProfileURL extracts the normalized handle from a profile URL.
// Accepts bare handles ("@name" or "name") as well as full URLs whose last
// path segment is the handle.
func handleFromProfileURL(profileURL string) string {
	raw := strings.TrimSpace(profileURL)
	if raw == "" {
		return ""
	}

	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		raw = segments[len(segments)-1]
	}

	raw = strings.TrimPrefix(raw, "@")
	return strings.ToLower(strings.TrimSpace(raw))
}
