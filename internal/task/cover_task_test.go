package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soluna-labs/mirage-api/internal/domain"
)

// coverStageTask returns an aggregate with an in-progress cover sub-task.
func coverStageTask(t *testing.T) *domain.AIGCTask {
	t.Helper()

	aggregate, err := domain.NewAIGCTask(uuid.New())
	require.NoError(t, err)

	aggregate.AvatarURL = "https://cdn.example.com/avatar_400x400.jpg"
	aggregate.Cover = &domain.Cover{SubTask: domain.NewSubTask()}
	aggregate.Cover.Input = &domain.CoverRequest{
		ProfileURL: "https://example.com/someone",
		StyleID:    2,
	}
	return aggregate
}

func TestCoverGenerationTask_AllVariantsCommit(t *testing.T) {
	aggregate := coverStageTask(t)
	taskStore := newMemTaskStore(aggregate)
	images := &stubImages{}
	objects := &stubObjects{
		fn: func(remoteURL string) (string, error) {
			return "https://storage.example.com/" + remoteURL[len("https://provider.example.com/"):], nil
		},
	}

	coverTask, err := NewCoverGenerationTask(
		aggregate.TaskID, aggregate.Cover.SubTaskID,
		taskStore, images, objects,
		"https://cdn.example.com/dance_pose.png",
		"https://cdn.example.com/sing_pose.png",
		testLogger())
	require.NoError(t, err)

	require.NoError(t, coverTask.Execute(context.Background()))
	assert.Equal(t, TaskStatusCompleted, coverTask.Status())

	saved, err := taskStore.GetByID(context.Background(), aggregate.TaskID)
	require.NoError(t, err)
	require.NotNil(t, saved.Cover.Output)
	assert.Equal(t, domain.SubTaskStatusDone, saved.Cover.Status)
	assert.Equal(t, "https://storage.example.com/first_frame.png", saved.Cover.Output.FirstFrameImageURL)
	assert.Equal(t, saved.Cover.Output.FirstFrameImageURL, saved.Cover.Output.CoverImageURL)
	assert.Equal(t, "https://storage.example.com/dance.png", saved.Cover.Output.DanceImageURL)
	assert.Equal(t, "https://storage.example.com/sing.png", saved.Cover.Output.SingImageURL)
	assert.Equal(t, "https://storage.example.com/figure.png", saved.Cover.Output.FigureImageURL)

	// All four variants were rendered and every artifact was copied to
	// durable storage.
	assert.ElementsMatch(t, []string{"first_frame", "dance", "sing", "figure"}, images.calls)
	assert.Len(t, objects.stored, 4)
}

func TestCoverGenerationTask_SingleVariantFailureFailsStage(t *testing.T) {
	aggregate := coverStageTask(t)
	taskStore := newMemTaskStore(aggregate)
	images := &stubImages{
		fn: func(refs []string, prompt, scenario string) (string, error) {
			if scenario == "sing" {
				return "", errors.New("provider rejected the request")
			}
			return "https://provider.example.com/" + scenario + ".png", nil
		},
	}

	coverTask, err := NewCoverGenerationTask(
		aggregate.TaskID, aggregate.Cover.SubTaskID,
		taskStore, images, &stubObjects{}, "", "", testLogger())
	require.NoError(t, err)

	err = coverTask.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, TaskStatusFailed, coverTask.Status())

	// One miss fails the whole stage: no partial artifact set survives.
	saved, err := taskStore.GetByID(context.Background(), aggregate.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubTaskStatusFailed, saved.Cover.Status)
	assert.Nil(t, saved.Cover.Output)
}

func TestCoverGenerationTask_SupersededAttemptIsDiscarded(t *testing.T) {
	aggregate := coverStageTask(t)
	taskStore := newMemTaskStore(aggregate)

	// The in-flight attempt carries a sub-task ID that the aggregate no
	// longer has: the stage was regenerated while this task was queued.
	staleAttemptID := uuid.New()

	coverTask, err := NewCoverGenerationTask(
		aggregate.TaskID, staleAttemptID,
		taskStore, &stubImages{}, &stubObjects{}, "", "", testLogger())
	require.NoError(t, err)

	require.NoError(t, coverTask.Execute(context.Background()))
	assert.Equal(t, TaskStatusCompleted, coverTask.Status())

	// Nothing was committed and the aggregate is untouched.
	assert.Equal(t, 0, taskStore.updateCount())
	saved, err := taskStore.GetByID(context.Background(), aggregate.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubTaskStatusInProgress, saved.Cover.Status)
	assert.Nil(t, saved.Cover.Output)
}

func TestCoverGenerationTask_SupersededDuringExecutionIsDiscarded(t *testing.T) {
	aggregate := coverStageTask(t)
	taskStore := newMemTaskStore(aggregate)
	originalAttemptID := aggregate.Cover.SubTaskID

	// Regenerate the cover after the task captured its attempt ID but
	// before it commits, simulating a redo racing the executor.
	images := &stubImages{
		fn: func(refs []string, prompt, scenario string) (string, error) {
			if scenario != "figure" {
				return "https://provider.example.com/" + scenario + ".png", nil
			}
			fresh, err := taskStore.GetByID(context.Background(), aggregate.TaskID)
			if err != nil {
				return "", err
			}
			if err := fresh.Cover.Regenerate(); err != nil {
				return "", err
			}
			if err := taskStore.Update(context.Background(), fresh); err != nil {
				return "", err
			}
			return "https://provider.example.com/" + scenario + ".png", nil
		},
	}

	coverTask, err := NewCoverGenerationTask(
		aggregate.TaskID, originalAttemptID,
		taskStore, images, &stubObjects{}, "", "", testLogger())
	require.NoError(t, err)

	require.NoError(t, coverTask.Execute(context.Background()))
	assert.Equal(t, TaskStatusCompleted, coverTask.Status())

	// The redo's fresh attempt is still in progress; the stale result never
	// landed on it.
	saved, err := taskStore.GetByID(context.Background(), aggregate.TaskID)
	require.NoError(t, err)
	assert.NotEqual(t, originalAttemptID, saved.Cover.SubTaskID)
	assert.Equal(t, domain.SubTaskStatusInProgress, saved.Cover.Status)
	assert.Nil(t, saved.Cover.Output)
}
