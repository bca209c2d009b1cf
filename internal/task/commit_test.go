package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/store"
)

func TestCommitTask_AppliesAndPersists(t *testing.T) {
	aggregate, err := domain.NewAIGCTask(uuid.New())
	require.NoError(t, err)
	taskStore := newMemTaskStore(aggregate)

	err = commitTask(context.Background(), taskStore, aggregate.TaskID, testLogger(),
		func(a *domain.AIGCTask) bool {
			a.Gender = "female"
			return true
		})
	require.NoError(t, err)

	saved, err := taskStore.GetByID(context.Background(), aggregate.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "female", saved.Gender)
	assert.Equal(t, int64(1), saved.Version)
}

func TestCommitTask_RetriesOnVersionConflict(t *testing.T) {
	aggregate, err := domain.NewAIGCTask(uuid.New())
	require.NoError(t, err)
	taskStore := newMemTaskStore(aggregate)
	taskStore.conflictsLeft = 1

	applied := 0
	err = commitTask(context.Background(), taskStore, aggregate.TaskID, testLogger(),
		func(a *domain.AIGCTask) bool {
			applied++
			a.Lang = "en"
			return true
		})
	require.NoError(t, err)

	// The mutation was reapplied against the reloaded aggregate.
	assert.Equal(t, 2, applied)
	saved, err := taskStore.GetByID(context.Background(), aggregate.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "en", saved.Lang)
}

func TestCommitTask_GivesUpAfterPersistentConflict(t *testing.T) {
	aggregate, err := domain.NewAIGCTask(uuid.New())
	require.NoError(t, err)
	taskStore := newMemTaskStore(aggregate)
	taskStore.conflictsLeft = maxCommitRetries

	err = commitTask(context.Background(), taskStore, aggregate.TaskID, testLogger(),
		func(a *domain.AIGCTask) bool { return true })
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrVersionConflict))
}

func TestCommitTask_StaleAttemptIsDiscardedSilently(t *testing.T) {
	aggregate, err := domain.NewAIGCTask(uuid.New())
	require.NoError(t, err)
	taskStore := newMemTaskStore(aggregate)

	err = commitTask(context.Background(), taskStore, aggregate.TaskID, testLogger(),
		func(a *domain.AIGCTask) bool { return false })
	require.NoError(t, err)
	assert.Equal(t, 0, taskStore.updateCount())
}

func TestCommitTask_MissingTaskFails(t *testing.T) {
	taskStore := newMemTaskStore()

	err := commitTask(context.Background(), taskStore, uuid.New(), testLogger(),
		func(a *domain.AIGCTask) bool { return true })
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrTaskNotFound))
}
