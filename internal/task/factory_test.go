package task

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soluna-labs/mirage-api/internal/domain"
)

func newTestFactory(t *testing.T) *Factory {
	t.Helper()

	factory, err := NewFactory(
		newMemTaskStore(), newMemSpeechStore(),
		&stubImages{}, &stubVideos{}, &stubLyrics{}, &stubMusic{},
		&stubSpeech{}, &stubObjects{}, &stubProfiles{},
		FactoryConfig{DefaultVoice: "Abbess"},
		testLogger())
	require.NoError(t, err)
	return factory
}

func TestFactory_CreateStageTask(t *testing.T) {
	factory := newTestFactory(t)
	taskID, subTaskID := uuid.New(), uuid.New()

	tests := []struct {
		taskType string
		key      domain.VideoKey
	}{
		{TaskTypeCoverGeneration, ""},
		{TaskTypeVideoGeneration, domain.VideoKeyDance},
		{TaskTypeLyricsGeneration, ""},
		{TaskTypeMusicGeneration, ""},
		{TaskTypeAudioGeneration, ""},
	}

	for _, tc := range tests {
		t.Run(tc.taskType, func(t *testing.T) {
			built, err := factory.CreateStageTask(tc.taskType, taskID, subTaskID, tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.taskType, built.Type())
			assert.Equal(t, TaskStatusPending, built.Status())
			assert.NotEqual(t, uuid.Nil, built.ID())
		})
	}

	_, err := factory.CreateStageTask("unknown_stage", taskID, subTaskID, "")
	assert.Error(t, err)
}

func TestFactory_RehydrateStageTask(t *testing.T) {
	factory := newTestFactory(t)

	workItemID := uuid.New()
	taskID, subTaskID := uuid.New(), uuid.New()
	payload, err := json.Marshal(stagePayload{
		TaskID:    taskID,
		SubTaskID: subTaskID,
		Key:       domain.VideoKeySing,
	})
	require.NoError(t, err)

	built, err := factory.Rehydrate(workItemID, TaskTypeVideoGeneration, payload)
	require.NoError(t, err)

	// A rehydrated task keeps its persisted work-item identity so status
	// updates land on the original row.
	assert.Equal(t, workItemID, built.ID())
	assert.Equal(t, TaskTypeVideoGeneration, built.Type())

	// The payload round-trips.
	var got stagePayload
	require.NoError(t, json.Unmarshal(built.Payload(), &got))
	assert.Equal(t, taskID, got.TaskID)
	assert.Equal(t, subTaskID, got.SubTaskID)
	assert.Equal(t, domain.VideoKeySing, got.Key)
}

func TestFactory_RehydrateSpeechTask(t *testing.T) {
	factory := newTestFactory(t)

	workItemID := uuid.New()
	speechTaskID := uuid.New()
	payload, err := json.Marshal(speechPayload{SpeechTaskID: speechTaskID})
	require.NoError(t, err)

	built, err := factory.Rehydrate(workItemID, TaskTypeSpeechSynthesis, payload)
	require.NoError(t, err)
	assert.Equal(t, workItemID, built.ID())
	assert.Equal(t, TaskTypeSpeechSynthesis, built.Type())

	var got speechPayload
	require.NoError(t, json.Unmarshal(built.Payload(), &got))
	assert.Equal(t, speechTaskID, got.SpeechTaskID)
}

func TestFactory_RehydrateBadPayload(t *testing.T) {
	factory := newTestFactory(t)

	_, err := factory.Rehydrate(uuid.New(), TaskTypeCoverGeneration, []byte("not json"))
	assert.Error(t, err)
}
