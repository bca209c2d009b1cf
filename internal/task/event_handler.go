package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/events"
)

// TaskBuilder builds executable tasks from event payload data. Implemented
// by *Factory; narrowed to an interface for testing.
type TaskBuilder interface {
	CreateStageTask(taskType string, taskID, subTaskID uuid.UUID, key domain.VideoKey) (Task, error)
	CreateSpeechTask(speechTaskID uuid.UUID) (Task, error)
}

// TaskSubmitter accepts tasks for background execution. Implemented by
// *TaskRunner.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface: it
// turns task request events into executable tasks and hands them to the
// runner.
type TaskFactoryEventHandler struct {
	factory TaskBuilder
	runner  TaskSubmitter
	logger  *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler backed by the given
// factory and runner.
func NewTaskFactoryEventHandler(
	factory TaskBuilder,
	runner TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent processes a task request event by creating and submitting the
// matching executable task.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	var built Task
	var err error

	switch event.Type {
	case TaskTypeCoverGeneration, TaskTypeVideoGeneration,
		TaskTypeLyricsGeneration, TaskTypeMusicGeneration, TaskTypeAudioGeneration:
		var payload stagePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			h.logger.Error("failed to unmarshal stage payload",
				"error", err, "event_id", event.ID, "event_type", event.Type)
			return fmt.Errorf("failed to unmarshal stage payload: %w", err)
		}
		built, err = h.factory.CreateStageTask(event.Type, payload.TaskID, payload.SubTaskID, payload.Key)

	case TaskTypeSpeechSynthesis:
		var payload speechPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			h.logger.Error("failed to unmarshal speech payload",
				"error", err, "event_id", event.ID)
			return fmt.Errorf("failed to unmarshal speech payload: %w", err)
		}
		built, err = h.factory.CreateSpeechTask(payload.SpeechTaskID)

	default:
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type, "event_id", event.ID)
		return nil
	}

	if err != nil {
		h.logger.Error("failed to create task",
			"error", err, "event_id", event.ID, "event_type", event.Type)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, built); err != nil {
		h.logger.Error("failed to submit task",
			"error", err, "task_id", built.ID(), "event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted",
		"task_id", built.ID(), "task_type", built.Type(), "event_id", event.ID)
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
