package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// maxCommitRetries bounds the reload-and-reapply loop on version conflicts.
const maxCommitRetries = 3

// commitTask reloads the aggregate, applies fn, and persists the result,
// retrying on version conflicts so a concurrent sibling-stage write never
// discards this stage's outcome.
//
// fn returns false to signal that the attempt is stale (the sub-task
// identity captured at schedule time no longer matches); the commit is then
// abandoned silently, which is the required behavior for superseded
// attempts.
func commitTask(
	ctx context.Context,
	taskStore store.AIGCTaskStore,
	taskID uuid.UUID,
	logger *slog.Logger,
	fn func(t *domain.AIGCTask) bool,
) error {
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		t, err := taskStore.GetByID(ctx, taskID)
		if err != nil {
			return fmt.Errorf("failed to reload task for commit: %w", err)
		}

		if !fn(t) {
			logger.Info("discarding result of superseded attempt",
				"task_id", taskID)
			return nil
		}

		err = taskStore.Update(ctx, t)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return fmt.Errorf("failed to persist task: %w", err)
		}

		logger.Debug("version conflict during commit, retrying",
			"task_id", taskID,
			"attempt", attempt+1)
	}

	return fmt.Errorf("failed to commit task %s after %d attempts: %w",
		taskID, maxCommitRetries, store.ErrVersionConflict)
}
