package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/events"
	"github.com/soluna-labs/mirage-api/internal/generation"
	"github.com/soluna-labs/mirage-api/internal/store"
	"github.com/soluna-labs/mirage-api/internal/task"
)

// PublishServiceError is a custom error type for publish pipeline errors.
type PublishServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for PublishServiceError.
func (e *PublishServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("publish service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PublishServiceError) Unwrap() error {
	return e.Err
}

// NewPublishServiceError creates a new PublishServiceError.
func NewPublishServiceError(operation, message string, err error) *PublishServiceError {
	return &PublishServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// PublishConfig carries the publish pipeline settings.
type PublishConfig struct {
	// RequireSongs makes finished lyrics and music mandatory for publishing.
	RequireSongs bool
	// FallbackRegion is used when no region can be resolved.
	FallbackRegion string
	// DefaultVoice is the synthesis voice for derivative speech tasks when
	// the request does not choose one.
	DefaultVoice string
}

// PublishRequest is the caller-supplied input of the publish operation.
type PublishRequest struct {
	// Description overrides the published record's description when set.
	Description string
	// Region overrides the published record's region when set.
	Region string
	// Voice selects the synthesis voice for derivative speech tasks.
	Voice string
	// ExtraHandles lists additional profile handles to voice as derivative
	// speech tasks, fire-and-forget.
	ExtraHandles []string
}

// PublishService reduces a finished task into its published DigitalHuman
// record.
type PublishService interface {
	// Publish validates the task's finished stages, deduplicates by
	// identity, writes the DigitalHuman record, and schedules derivative
	// speech tasks. The record is returned synchronously; derivative task
	// failures are never surfaced.
	Publish(ctx context.Context, taskID uuid.UUID, req PublishRequest) (*domain.DigitalHuman, error)
}

// publishServiceImpl implements the PublishService interface
type publishServiceImpl struct {
	taskStore   store.AIGCTaskStore
	humanStore  store.DigitalHumanStore
	speechStore store.SpeechTaskStore
	profiles    generation.ProfileLookup
	emitter     events.EventEmitter
	cfg         PublishConfig
	logger      *slog.Logger
}

// NewPublishService creates a new PublishService.
// It returns an error if any of the required dependencies are nil.
func NewPublishService(
	taskStore store.AIGCTaskStore,
	humanStore store.DigitalHumanStore,
	speechStore store.SpeechTaskStore,
	profiles generation.ProfileLookup,
	emitter events.EventEmitter,
	cfg PublishConfig,
	logger *slog.Logger,
) (PublishService, error) {
	if taskStore == nil || humanStore == nil || speechStore == nil {
		return nil, fmt.Errorf("stores cannot be nil")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile lookup cannot be nil")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &publishServiceImpl{
		taskStore:   taskStore,
		humanStore:  humanStore,
		speechStore: speechStore,
		profiles:    profiles,
		emitter:     emitter,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "publish_service")),
	}, nil
}

// Publish implements PublishService.Publish.
func (s *publishServiceImpl) Publish(ctx context.Context, taskID uuid.UUID, req PublishRequest) (*domain.DigitalHuman, error) {
	t, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, NewPublishServiceError("publish", "failed to load task", err)
	}

	// 1. A finished cover with an identity-bearing input is mandatory.
	if !t.CoverDone() || t.Cover.Input == nil || t.Cover.Input.ProfileURL == "" {
		return nil, fmt.Errorf("%w: task %s", ErrCoverNotReady, taskID)
	}

	// 2. Identity key from the cover's originating handle.
	name := handleFromProfileURL(t.Cover.Input.ProfileURL)
	if name == "" {
		return nil, fmt.Errorf("%w: task %s", ErrCoverNotReady, taskID)
	}

	// 3. Identity collision check; a match means republish.
	var prior *domain.DigitalHuman
	existing, err := s.humanStore.GetByName(ctx, name)
	switch {
	case err == nil:
		if existing.FromTaskID != t.TaskID {
			return nil, fmt.Errorf("%w: %s", ErrIdentityClaimed, name)
		}
		prior = existing
	case errors.Is(err, store.ErrDigitalHumanNotFound):
		// First publish for this identity.
	default:
		return nil, NewPublishServiceError("publish", "failed to look up identity", err)
	}

	// 4. Every finished video with a usable artifact; none means no publish.
	videos := collectPublishableVideos(t)
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: task %s", ErrNoVideoAvailable, taskID)
	}

	// 5. Songs, mandatory only when configured.
	songs := buildSongBundle(t)
	if s.cfg.RequireSongs {
		if t.Lyrics == nil || t.Lyrics.Output == nil {
			return nil, fmt.Errorf("%w: task %s", ErrLyricsNotReady, taskID)
		}
		if t.Music == nil || t.Music.Output == nil {
			return nil, fmt.Errorf("%w: task %s", ErrMusicNotReady, taskID)
		}
	}

	// 6. Description and region: request, then prior record, then profile
	// lookup, then fallback. Lookup failures are swallowed.
	description, region := s.resolveIdentityDetails(ctx, name, prior, req)

	now := time.Now().UTC()
	human := &domain.DigitalHuman{
		ID:                 uuid.New(),
		FromTaskID:         t.TaskID,
		FromTenantID:       t.TenantID,
		Name:               name,
		Description:        description,
		Region:             region,
		CoverImageURL:      t.Cover.Output.CoverImageURL,
		FirstFrameImageURL: t.Cover.Output.FirstFrameImageURL,
		DanceImageURL:      t.Cover.Output.DanceImageURL,
		SingImageURL:       t.Cover.Output.SingImageURL,
		FigureImageURL:     t.Cover.Output.FigureImageURL,
		Videos:             videos,
		Songs:              songs,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if t.Audio != nil && t.Audio.Status == domain.SubTaskStatusDone {
		human.Audios = t.Audio.Output
	}
	if prior != nil {
		// Republish replaces the record but keeps its identity.
		human.ID = prior.ID
		human.CreatedAt = prior.CreatedAt
	}

	// 7. Insert-or-replace keyed by identity.
	if err := s.humanStore.Save(ctx, human); err != nil {
		return nil, NewPublishServiceError("publish", "failed to save digital human", err)
	}

	// 8. Derivative speech tasks, fire-and-forget.
	s.scheduleSpeechTasks(ctx, t.TenantID, human.ID, req)

	s.logger.Info("digital human published",
		slog.String("name", name),
		slog.String("id", human.ID.String()),
		slog.Int("video_count", len(videos)))

	// 9. The record is the synchronous result.
	return human, nil
}

// resolveIdentityDetails applies the description/region resolution order.
func (s *publishServiceImpl) resolveIdentityDetails(
	ctx context.Context,
	name string,
	prior *domain.DigitalHuman,
	req PublishRequest,
) (description, region string) {
	description = req.Description
	region = req.Region

	if prior != nil {
		if description == "" {
			description = prior.Description
		}
		if region == "" {
			region = prior.Region
		}
	}

	if description == "" || region == "" {
		profile, err := s.profiles.Lookup(ctx, name)
		if err != nil {
			s.logger.Warn("profile lookup failed during publish, using fallbacks",
				slog.String("handle", name),
				slog.String("error", err.Error()))
		} else {
			if description == "" {
				description = profile.Description
			}
			if region == "" {
				region = profile.Region
			}
		}
	}

	if region == "" {
		region = s.cfg.FallbackRegion
	}
	return description, region
}

// scheduleSpeechTasks creates and emits one derivative speech work item per
// extra handle. Failures are logged, never returned.
func (s *publishServiceImpl) scheduleSpeechTasks(
	ctx context.Context,
	tenantID, humanID uuid.UUID,
	req PublishRequest,
) {
	voice := req.Voice
	if voice == "" {
		voice = s.cfg.DefaultVoice
	}

	for _, handle := range req.ExtraHandles {
		normalized := handleFromProfileURL(handle)
		if normalized == "" {
			continue
		}

		item, err := domain.NewSpeechTask(tenantID, humanID, normalized, voice)
		if err != nil {
			s.logger.Warn("skipping invalid speech task handle",
				slog.String("handle", handle),
				slog.String("error", err.Error()))
			continue
		}
		if err := s.speechStore.Create(ctx, item); err != nil {
			s.logger.Error("failed to create speech task",
				slog.String("handle", normalized),
				slog.String("error", err.Error()))
			continue
		}

		event, err := events.NewTaskRequestEvent(task.TaskTypeSpeechSynthesis, map[string]any{
			"speech_task_id": item.ID,
		})
		if err == nil {
			err = s.emitter.EmitEvent(ctx, event)
		}
		if err != nil {
			// The sweep over pending speech tasks will pick it up later.
			s.logger.Error("failed to schedule speech task",
				slog.String("speech_task_id", item.ID.String()),
				slog.String("error", err.Error()))
		}
	}
}

// collectPublishableVideos returns the finished videos with usable view URLs.
func collectPublishableVideos(t *domain.AIGCTask) []domain.DigitalVideo {
	var videos []domain.DigitalVideo
	for _, v := range t.Videos {
		if v.Status != domain.SubTaskStatusDone || v.Output == nil || v.Output.ViewURL == "" {
			continue
		}
		if v.Input == nil {
			continue
		}
		videos = append(videos, domain.DigitalVideo{
			Key:     v.Input.Key,
			ViewURL: v.Output.ViewURL,
		})
	}
	return videos
}

// buildSongBundle assembles the published song references from whatever
// lyric and music outputs the task has.
func buildSongBundle(t *domain.AIGCTask) *domain.SongBundle {
	bundle := &domain.SongBundle{}
	populated := false

	if t.Lyrics != nil && t.Lyrics.Status == domain.SubTaskStatusDone && t.Lyrics.Output != nil {
		bundle.Lyrics = t.Lyrics.Output.Lyrics
		bundle.LyricsTitle = t.Lyrics.Output.Title
		populated = true
	}
	if t.Music != nil && t.Music.Status == domain.SubTaskStatusDone && t.Music.Output != nil {
		out := t.Music.Output
		bundle.MusicAudioURL = out.AudioURL
		bundle.MusicStyle = out.Style
		bundle.MusicModel = out.Model
		bundle.MusicVoice = out.Voice
		bundle.MusicFormat = out.ResponseFormat
		bundle.MusicSpeed = out.Speed
		populated = true
	}

	if !populated {
		return nil
	}
	return bundle
}
