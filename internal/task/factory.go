package task

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/generation"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// stagePayload is the serialized form of a generation-stage task.
type stagePayload struct {
	TaskID    uuid.UUID       `json:"task_id"`
	SubTaskID uuid.UUID       `json:"sub_task_id"`
	Key       domain.VideoKey `json:"key,omitempty"`
}

// speechPayload is the serialized form of a derivative speech task.
type speechPayload struct {
	SpeechTaskID uuid.UUID `json:"speech_task_id"`
}

// FactoryConfig carries the provider settings the generation tasks need.
type FactoryConfig struct {
	DancePoseURL string
	SingPoseURL  string
	DefaultVoice string
}

// Factory builds executable generation tasks with their dependencies
// attached. It serves both fresh submissions (from the event handler) and
// rehydration of persisted work items during runner recovery.
type Factory struct {
	taskStore   store.AIGCTaskStore
	speechStore store.SpeechTaskStore

	images   generation.ImageGenerator
	videos   generation.VideoGenerator
	lyrics   generation.LyricsGenerator
	music    generation.MusicGenerator
	speech   generation.SpeechSynthesizer
	objects  generation.ObjectStore
	profiles generation.ProfileLookup

	cfg    FactoryConfig
	logger *slog.Logger
}

// NewFactory creates a task factory.
func NewFactory(
	taskStore store.AIGCTaskStore,
	speechStore store.SpeechTaskStore,
	images generation.ImageGenerator,
	videos generation.VideoGenerator,
	lyrics generation.LyricsGenerator,
	music generation.MusicGenerator,
	speech generation.SpeechSynthesizer,
	objects generation.ObjectStore,
	profiles generation.ProfileLookup,
	cfg FactoryConfig,
	logger *slog.Logger,
) (*Factory, error) {
	if taskStore == nil || speechStore == nil {
		return nil, ErrNilTaskStore
	}
	if images == nil || videos == nil || lyrics == nil || music == nil ||
		speech == nil || objects == nil || profiles == nil {
		return nil, ErrNilProvider
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &Factory{
		taskStore:   taskStore,
		speechStore: speechStore,
		images:      images,
		videos:      videos,
		lyrics:      lyrics,
		music:       music,
		speech:      speech,
		objects:     objects,
		profiles:    profiles,
		cfg:         cfg,
		logger:      logger.With("component", "task_factory"),
	}, nil
}

// CreateStageTask builds the executable task for one generation-stage
// attempt, keyed by the task type constant.
func (f *Factory) CreateStageTask(taskType string, taskID, subTaskID uuid.UUID, key domain.VideoKey) (Task, error) {
	switch taskType {
	case TaskTypeCoverGeneration:
		return NewCoverGenerationTask(taskID, subTaskID, f.taskStore, f.images, f.objects,
			f.cfg.DancePoseURL, f.cfg.SingPoseURL, f.logger)
	case TaskTypeVideoGeneration:
		return NewVideoGenerationTask(taskID, subTaskID, key, f.taskStore, f.videos, f.objects, f.logger)
	case TaskTypeLyricsGeneration:
		return NewLyricsGenerationTask(taskID, subTaskID, f.taskStore, f.lyrics, f.logger)
	case TaskTypeMusicGeneration:
		return NewMusicGenerationTask(taskID, subTaskID, f.taskStore, f.music, f.objects,
			f.cfg.DefaultVoice, f.logger)
	case TaskTypeAudioGeneration:
		return NewAudioGenerationTask(taskID, subTaskID, f.taskStore, f.speech,
			f.cfg.DefaultVoice, f.logger)
	default:
		return nil, fmt.Errorf("unknown stage task type: %s", taskType)
	}
}

// CreateSpeechTask builds the executable task for one derivative speech
// work item.
func (f *Factory) CreateSpeechTask(speechTaskID uuid.UUID) (Task, error) {
	return NewSpeechSynthesisTask(speechTaskID, f.speechStore, f.taskStore,
		f.profiles, f.speech, f.logger)
}

// Rehydrate rebuilds an executable task from a persisted work-item row.
// The rebuilt task keeps the original work-item ID so status updates land
// on the right row.
func (f *Factory) Rehydrate(id uuid.UUID, taskType string, payload []byte) (Task, error) {
	var built Task
	var err error

	switch taskType {
	case TaskTypeSpeechSynthesis:
		var p speechPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal speech payload: %w", err)
		}
		built, err = f.CreateSpeechTask(p.SpeechTaskID)
	default:
		var p stagePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stage payload: %w", err)
		}
		built, err = f.CreateStageTask(taskType, p.TaskID, p.SubTaskID, p.Key)
	}
	if err != nil {
		return nil, err
	}

	setTaskID(built, id)
	return built, nil
}

// setTaskID overrides the work-item identity of a freshly built task so a
// recovered row is not duplicated under a new ID.
func setTaskID(t Task, id uuid.UUID) {
	switch task := t.(type) {
	case *CoverGenerationTask:
		task.id = id
	case *VideoGenerationTask:
		task.id = id
	case *LyricsGenerationTask:
		task.id = id
	case *MusicGenerationTask:
		task.id = id
	case *AudioGenerationTask:
		task.id = id
	case *SpeechSynthesisTask:
		task.id = id
	}
}
