package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SpeechTaskStatus represents the processing state of a derivative speech task.
type SpeechTaskStatus string

// Possible speech task status values
const (
	SpeechTaskStatusPending    SpeechTaskStatus = "pending"
	SpeechTaskStatusProcessing SpeechTaskStatus = "processing"
	SpeechTaskStatusDone       SpeechTaskStatus = "done"
	SpeechTaskStatusFailed     SpeechTaskStatus = "failed"
)

// Common validation errors for SpeechTask
var (
	ErrEmptySpeechTaskID = errors.New("speech task ID cannot be empty")
	ErrEmptyHandle       = errors.New("handle cannot be empty")
)

// SpeechTask is a derivative text-to-speech work item created when a digital
// human is published: one per additional handle supplied in the publish
// request, voiced with the published identity.
type SpeechTask struct {
	ID             uuid.UUID        `json:"id"`
	TenantID       uuid.UUID        `json:"tenant_id"`
	DigitalHumanID uuid.UUID        `json:"digital_human_id"`
	Handle         string           `json:"handle"`
	VoiceID        string           `json:"voice_id"`
	Status         SpeechTaskStatus `json:"status"`
	AudioURL       string           `json:"audio_url,omitempty"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewSpeechTask creates a pending speech task for the given handle.
func NewSpeechTask(tenantID, digitalHumanID uuid.UUID, handle, voiceID string) (*SpeechTask, error) {
	if handle == "" {
		return nil, ErrEmptyHandle
	}
	now := time.Now().UTC()
	return &SpeechTask{
		ID:             uuid.New(),
		TenantID:       tenantID,
		DigitalHumanID: digitalHumanID,
		Handle:         handle,
		VoiceID:        voiceID,
		Status:         SpeechTaskStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Validate checks if the SpeechTask has valid data.
func (s *SpeechTask) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySpeechTaskID
	}
	if s.Handle == "" {
		return ErrEmptyHandle
	}
	return nil
}
