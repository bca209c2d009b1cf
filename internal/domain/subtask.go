package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SubTaskStatus represents the processing state of a single generation sub-task.
type SubTaskStatus string

// Possible sub-task status values
const (
	SubTaskStatusInProgress SubTaskStatus = "in_progress"
	SubTaskStatusDone       SubTaskStatus = "done"
	SubTaskStatusFailed     SubTaskStatus = "failed"
)

// SubTask is the generic lifecycle record shared by every pipeline stage.
// A sub-task is created in progress, finishes done or failed, and can be
// redone any number of times. Each attempt gets a fresh SubTaskID; the
// background executor uses that ID to detect that its attempt has been
// superseded before committing a result.
type SubTask struct {
	SubTaskID uuid.UUID         `json:"sub_task_id"`
	Status    SubTaskStatus     `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	DoneAt    *time.Time        `json:"done_at,omitempty"`
	History   []json.RawMessage `json:"history,omitempty"`
}

// NewSubTask returns an in-progress sub-task with a fresh identity.
func NewSubTask() SubTask {
	return SubTask{
		SubTaskID: uuid.New(),
		Status:    SubTaskStatusInProgress,
		CreatedAt: time.Now().UTC(),
	}
}

// Complete marks the sub-task done and stamps the completion time.
func (s *SubTask) Complete() {
	now := time.Now().UTC()
	s.Status = SubTaskStatusDone
	s.DoneAt = &now
}

// Fail marks the sub-task failed. Failed attempts are never archived to
// history; the next regeneration simply overwrites them.
func (s *SubTask) Fail() {
	s.Status = SubTaskStatusFailed
}

// regenerate resets the sub-task for a new attempt. The snapshot argument is
// the full specialized sub-task (with History already cleared to prevent
// unbounded nesting); it is archived only when the current attempt completed
// successfully. A new SubTaskID is issued unconditionally so an in-flight
// attempt for the previous identity can never commit over the redo.
func (s *SubTask) regenerate(snapshot any) error {
	if s.Status == SubTaskStatusDone {
		raw, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		s.History = append([]json.RawMessage{raw}, s.History...)
	}

	s.SubTaskID = uuid.New()
	s.Status = SubTaskStatusInProgress
	s.CreatedAt = time.Now().UTC()
	s.DoneAt = nil
	return nil
}
