package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:  4,
		QueueSize:    100,
		StuckTaskAge: 30 * time.Minute,
	}
}

// TaskRunner manages background task processing. Work items are persisted
// before queuing so a process restart can recover them; the caller is
// expected to schedule SweepStuckTasks periodically (the server wires it to
// a cron entry).
type TaskRunner struct {
	store      TaskStore
	resolver   Resolver
	taskChan   chan Task
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		store:      store,
		taskChan:   make(chan Task, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		wg:         sync.WaitGroup{},
		config:     config,
		logger:     logger,
	}
}

// SetResolver installs the function used to rebuild executable tasks from
// persisted rows during recovery. Must be called before Start.
func (r *TaskRunner) SetResolver(resolver Resolver) {
	r.resolver = resolver
}

// Submit adds a new task to the queue
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	// Save task to database first
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	// Then add to in-memory queue
	select {
	case r.taskChan <- task:
		return nil
	default:
		// Queue is full, return error
		return fmt.Errorf("task queue is full, try again later")
	}
}

// Start initializes the worker pool and begins processing tasks
func (r *TaskRunner) Start() error {
	// Recover unfinished tasks from previous runs
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	// Start worker goroutines
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	return nil
}

// Stop gracefully shuts down the task runner
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	close(r.taskChan)
}

// Recover loads any unfinished tasks from the database and requeues them.
func (r *TaskRunner) Recover() error {
	ctx := context.Background()

	// Get tasks that were in "pending" state
	pendingTasks, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Get tasks that were in "processing" state (potentially interrupted by a crash)
	processingTasks, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pendingTasks),
		"processing_count", len(processingTasks))

	for _, t := range pendingTasks {
		r.requeue(ctx, t)
	}

	// Reset processing tasks back to pending state and requeue them
	for _, t := range processingTasks {
		if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"error", err)
			continue
		}
		r.requeue(ctx, t)
	}

	return nil
}

// requeue resolves a persisted task into its executable form and puts it on
// the queue.
func (r *TaskRunner) requeue(ctx context.Context, t Task) {
	if r.resolver != nil {
		resolved, err := r.resolver(t.ID(), t.Type(), t.Payload())
		if err != nil {
			r.logger.Error("failed to resolve recovered task",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"error", err)
			if updateErr := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusFailed,
				fmt.Sprintf("unresolvable after recovery: %v", err)); updateErr != nil {
				r.logger.Error("failed to mark unresolvable task failed",
					"task_id", t.ID(), "error", updateErr)
			}
			return
		}
		t = resolved
	}

	select {
	case r.taskChan <- t:
		// Successfully requeued
	default:
		r.logger.Error("failed to requeue task, queue is full",
			"task_id", t.ID(),
			"task_type", t.Type())
	}
}

// SweepStuckTasks finds tasks that have been in processing state longer
// than the configured age, resets them to pending, and requeues them. The
// server schedules this on an interval.
func (r *TaskRunner) SweepStuckTasks(ctx context.Context) error {
	stuckTasks, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		return fmt.Errorf("failed to check for stuck tasks: %w", err)
	}

	if len(stuckTasks) == 0 {
		return nil
	}

	r.logger.Info("found stuck tasks", "count", len(stuckTasks))

	for _, t := range stuckTasks {
		if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusPending,
			"Reset after being stuck in processing state"); err != nil {
			r.logger.Error("failed to reset stuck task status",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"error", err)
			continue
		}
		r.requeue(ctx, t)
	}

	return nil
}

// worker processes tasks from the queue
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case t, ok := <-r.taskChan:
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			r.processTask(t, id)
		}
	}
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(t Task, workerID int) {
	ctx := context.Background()
	logger := r.logger.With(
		"task_id", t.ID(),
		"task_type", t.Type(),
		"worker_id", workerID,
	)

	// Update task status to processing
	if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return
	}

	logger.Info("processing task")

	err := t.Execute(ctx)

	if err != nil {
		// Background failures never propagate past this boundary; the
		// persisted FAILED status is their only observable effect.
		logger.Error("task execution failed", "error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
	} else {
		logger.Info("task completed successfully")
		if updateErr := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusCompleted, ""); updateErr != nil {
			logger.Error("failed to update task status to completed", "error", updateErr)
		}
	}
}
